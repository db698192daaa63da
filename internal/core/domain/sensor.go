package domain

import (
	"strconv"
	"strings"
)

// MaxSensorNameLength bounds the human-readable sensor name.
const MaxSensorNameLength = 64

// SensorModel is the hardware model tag of a sensor.
type SensorModel int

// Known sensor models. The zero value is the generic DIY model.
const (
	ModelDIY SensorModel = iota
	ModelBasic
	ModelPro
)

var sensorModelNames = map[SensorModel]string{
	ModelDIY:   "diy",
	ModelBasic: "basic",
	ModelPro:   "pro",
}

// String returns the model name.
func (m SensorModel) String() string {
	if name, ok := sensorModelNames[m]; ok {
		return name
	}
	return "unknown(" + strconv.Itoa(int(m)) + ")"
}

// Code returns the integer wire code of the model.
func (m SensorModel) Code() int {
	return int(m)
}

// IsValid reports whether m is a known model.
func (m SensorModel) IsValid() bool {
	_, ok := sensorModelNames[m]
	return ok
}

// ParseSensorModel accepts a model name ("pro") or integer code ("2").
// An empty string yields ModelDIY.
func ParseSensorModel(s string) (SensorModel, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if s == "" {
		return ModelDIY, nil
	}
	if code, err := strconv.Atoi(s); err == nil {
		m := SensorModel(code)
		if !m.IsValid() {
			return ModelDIY, ErrSensorValidation.WithDetails("unknown model code " + s)
		}
		return m, nil
	}
	for m, name := range sensorModelNames {
		if name == s {
			return m, nil
		}
	}
	return ModelDIY, ErrSensorValidation.WithDetails("unknown model " + s)
}

// Sensor is a telemetry producer owned by exactly one account.
type Sensor struct {
	// ID is the unique sensor identifier (UUID, lowercase).
	ID string `json:"id"`

	// Owner is the owning account id.
	Owner string `json:"owner"`

	// Name is unique within the owning account (case-sensitive).
	Name string `json:"name"`

	// Model is the hardware model tag.
	Model SensorModel `json:"model"`

	// Latest is the most recent reading, nil until the first push.
	Latest *float64 `json:"latest"`

	// Battery is the last reported battery level, nil when unknown.
	Battery *int `json:"battery"`

	// Updated is the server time of the latest reading (Unix seconds).
	// It is written together with Latest, never independently.
	Updated *int64 `json:"updated"`
}

// NewSensor creates a sensor with a generated id.
func NewSensor(owner, name string, model SensorModel) *Sensor {
	return &Sensor{
		ID:    NewID(),
		Owner: owner,
		Name:  name,
		Model: model,
	}
}

// RecordReading stores a reading, its battery level and the server timestamp
// as one unit. A nil battery clears any previously reported level.
func (s *Sensor) RecordReading(value float64, battery *int, at int64) {
	v := value
	ts := at
	s.Latest = &v
	s.Updated = &ts
	if battery != nil {
		b := *battery
		s.Battery = &b
	} else {
		s.Battery = nil
	}
}

// SetModel changes the model tag and clears the battery level.
func (s *Sensor) SetModel(m SensorModel) {
	s.Model = m
	s.Battery = nil
}

// HasReading reports whether telemetry has been received.
func (s *Sensor) HasReading() bool {
	return s.Latest != nil && s.Updated != nil
}

// Data returns the notification record for the sensor's current state.
func (s *Sensor) Data() *SensorData {
	d := &SensorData{
		ID:    s.ID,
		Name:  s.Name,
		Model: s.Model,
	}
	if s.Latest != nil {
		v := *s.Latest
		d.Sensor = &v
	}
	if s.Battery != nil {
		b := *s.Battery
		d.Battery = &b
	}
	return d
}

// Clone creates a deep copy of the sensor.
func (s *Sensor) Clone() *Sensor {
	clone := *s
	if s.Latest != nil {
		v := *s.Latest
		clone.Latest = &v
	}
	if s.Battery != nil {
		b := *s.Battery
		clone.Battery = &b
	}
	if s.Updated != nil {
		u := *s.Updated
		clone.Updated = &u
	}
	return &clone
}

// ValidateSensorName checks the sensor name constraints.
func ValidateSensorName(name string) error {
	if strings.TrimSpace(name) == "" {
		return ErrSensorValidation.WithDetails("name is required")
	}
	if len(name) > MaxSensorNameLength {
		return ErrSensorValidation.WithDetails("name exceeds 64 characters")
	}
	return nil
}
