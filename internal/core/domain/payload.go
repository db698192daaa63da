package domain

// PayloadKind distinguishes visible alerts from silent background pushes.
type PayloadKind string

const (
	PayloadAlert      PayloadKind = "alert"
	PayloadBackground PayloadKind = "background"
)

// Alert is the visible part of an alert notification.
type Alert struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle"`
}

// SensorData is the structured record carried by background notifications.
type SensorData struct {
	ID      string      `json:"id"`
	Name    string      `json:"name"`
	Sensor  *float64    `json:"sensor"`
	Battery *int        `json:"battery"`
	Model   SensorModel `json:"model"`
}

// Payload is one logical notification. Exactly one of Alert or Data is set,
// matching Kind.
type Payload struct {
	Kind  PayloadKind
	Alert *Alert
	Data  *SensorData
}

// NewAlertPayload builds an alert payload.
func NewAlertPayload(title, subtitle string) Payload {
	return Payload{
		Kind:  PayloadAlert,
		Alert: &Alert{Title: title, Subtitle: subtitle},
	}
}

// NewBackgroundPayload builds a background payload carrying sensor data.
func NewBackgroundPayload(data *SensorData) Payload {
	return Payload{
		Kind: PayloadBackground,
		Data: data,
	}
}
