package logfile

// EventType tags every diagnostic record written by the downloader.
type EventType string

const (
	// Application lifecycle
	EventAppStart EventType = "APP_START"
	EventAppExit  EventType = "APP_EXIT"

	// Configuration
	EventConfigSaved   EventType = "CONFIG_SAVED"
	EventConfigUpdated EventType = "CONFIG_UPDATED"
	EventConfigRead    EventType = "CONFIG_READ"

	// Synchronization
	EventSyncStarted     EventType = "SYNC_STARTED"
	EventSyncCompleted   EventType = "SYNC_COMPLETED"
	EventSyncFailed      EventType = "SYNC_FAILED"
	EventAutoSyncStarted EventType = "AUTO_SYNC_STARTED"

	// Downloads
	EventDownloadStarted   EventType = "DOWNLOAD_STARTED"
	EventDownloadProgress  EventType = "DOWNLOAD_PROGRESS"
	EventDownloadCompleted EventType = "DOWNLOAD_COMPLETED"
	EventDownloadFailed    EventType = "DOWNLOAD_FAILED"

	// Push channel
	EventChannelConnected    EventType = "WEBSOCKET_CONNECTED"
	EventChannelDisconnected EventType = "WEBSOCKET_DISCONNECTED"
	EventChannelError        EventType = "WEBSOCKET_ERROR"
	EventSyncCommandReceived EventType = "SYNC_COMMAND_RECEIVED"

	// Errors
	EventErrorGeneral    EventType = "ERROR_GENERAL"
	EventErrorNetwork    EventType = "ERROR_NETWORK"
	EventErrorFileSystem EventType = "ERROR_FILE_SYSTEM"
)

// allEvents backs the exhaustiveness test for Label.
var allEvents = []EventType{
	EventAppStart, EventAppExit,
	EventConfigSaved, EventConfigUpdated, EventConfigRead,
	EventSyncStarted, EventSyncCompleted, EventSyncFailed, EventAutoSyncStarted,
	EventDownloadStarted, EventDownloadProgress, EventDownloadCompleted, EventDownloadFailed,
	EventChannelConnected, EventChannelDisconnected, EventChannelError,
	EventSyncCommandReceived,
	EventErrorGeneral, EventErrorNetwork, EventErrorFileSystem,
}

// Label returns the operator-facing label for an event type. Every
// declared event type has an entry; an unknown value falls back to the
// raw tag, which the exhaustiveness test treats as a missing label.
func (e EventType) Label() string {
	switch e {
	case EventAppStart:
		return "프로그램 시작"
	case EventAppExit:
		return "프로그램 종료"
	case EventConfigSaved:
		return "설정 저장"
	case EventConfigUpdated:
		return "설정 변경"
	case EventConfigRead:
		return "설정 읽기"
	case EventSyncStarted:
		return "동기화 시작"
	case EventSyncCompleted:
		return "동기화 완료"
	case EventSyncFailed:
		return "동기화 실패"
	case EventAutoSyncStarted:
		return "자동 동기화 시작"
	case EventDownloadStarted:
		return "다운로드 시작"
	case EventDownloadProgress:
		return "다운로드 진행"
	case EventDownloadCompleted:
		return "다운로드 완료"
	case EventDownloadFailed:
		return "다운로드 실패"
	case EventChannelConnected:
		return "서버 연결됨"
	case EventChannelDisconnected:
		return "서버 연결 끊김"
	case EventChannelError:
		return "서버 연결 오류"
	case EventSyncCommandReceived:
		return "동기화 명령 수신"
	case EventErrorGeneral:
		return "오류"
	case EventErrorNetwork:
		return "네트워크 오류"
	case EventErrorFileSystem:
		return "파일 시스템 오류"
	}
	return string(e)
}
