package domain

// Типы сообщений и чатов в схеме экспорта.
const (
	MessageTypeMessage = "message"
	MessageTypeService = "service"

	ChatTypePersonal = "personal_chat"

	// UnknownSenderID подставляется, когда имя отправителя отсутствует в справочнике.
	UnknownSenderID = "Unknown"
)

// Действия служебных сообщений.
const (
	ActionClearHistory  = "clear_history"
	ActionEditChatTheme = "edit_chat_theme"
	ActionPinMessage    = "pin_message"
	ActionPhoneCall     = "phone_call"
)

// Значения media_type.
const (
	MediaTypeSticker      = "sticker"
	MediaTypeAnimation    = "animation"
	MediaTypeVideo        = "video"
	MediaTypeVideoFile    = "video_file"
	MediaTypeVideoMessage = "video_message"
	MediaTypeVoiceMessage = "voice_message"
	MediaTypeAudioFile    = "audio_file"
)

// ExportedChat представляет корневую структуру файла экспорта.
// Порядок полей структуры совпадает с порядком ключей в выходном JSON.
type ExportedChat struct {
	Name     string    `json:"name"`
	Type     string    `json:"type"`
	ID       int64     `json:"id"`
	Messages []*Record `json:"messages"`
}

// ChatMeta содержит метаданные чата, общие для всех сообщений одного шарда.
type ChatMeta struct {
	Name string
	ID   int64
}

// Location хранит координаты из location_information.
type Location struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Contact описывает карточку контакта из contact_information.
type Contact struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	PhoneNumber string `json:"phone_number"`
}

// Poll описывает опрос. Количество голосов по вариантам в HTML отсутствует,
// поэтому Voters всегда 0, а Chosen всегда false.
type Poll struct {
	Question    string       `json:"question"`
	Closed      bool         `json:"closed"`
	TotalVoters int          `json:"total_voters"`
	Answers     []PollAnswer `json:"answers"`
}

// PollAnswer описывает вариант ответа опроса.
type PollAnswer struct {
	Text   string `json:"text"`
	Voters int    `json:"voters"`
	Chosen bool   `json:"chosen"`
}

// Sender представляет отправителя, найденного в HTML-документе.
// Это наша внутренняя модель для отчета о справочнике отправителей.
type Sender struct {
	Name     string `json:"name"`
	ID       string `json:"id"`
	Resolved bool   `json:"resolved"`
	Messages int    `json:"messages"`
}
