package command

import (
	"strconv"
	"time"

	"github.com/MiaKoring/BloomBuddyServer/internal/cli/output"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

type tokenView struct {
	AccountID string `json:"account_id,omitempty" yaml:"account_id,omitempty"`
	Token     string `json:"token" yaml:"token"`
	ExpiresAt int64  `json:"expires_at" yaml:"expires_at"`
}

type sensorView struct {
	ID      string   `json:"id" yaml:"id"`
	Name    string   `json:"name" yaml:"name"`
	Model   int      `json:"model" yaml:"model"`
	Sensor  *float64 `json:"sensor" yaml:"sensor"`
	Battery *int     `json:"battery" yaml:"battery"`
	Updated *int64   `json:"updated" yaml:"updated"`
	Reading string   `json:"reading,omitempty" yaml:"reading,omitempty"`
}

func (s sensorView) row() []string {
	var value, battery, updated string
	if s.Sensor != nil {
		value = domain.FormatValue(*s.Sensor)
	}
	if s.Battery != nil {
		battery = strconv.Itoa(*s.Battery) + "%"
	}
	if s.Updated != nil {
		updated = time.Unix(*s.Updated, 0).Format("2006-01-02 15:04:05")
	}
	return []string{s.ID, s.Name, domain.SensorModel(s.Model).String(), value, battery, updated}
}

var sensorHeaders = []string{"ID", "NAME", "MODEL", "VALUE", "BATTERY", "UPDATED"}

func (s sensorView) Table() *output.Table {
	t := output.NewTable(sensorHeaders...)
	t.AddRow(s.row()...)
	return t
}

type sensorsView struct {
	Sensors []sensorView `json:"sensors" yaml:"sensors"`
}

func (l sensorsView) Table() *output.Table {
	t := output.NewTable(sensorHeaders...)
	for _, s := range l.Sensors {
		t.AddRow(s.row()...)
	}
	return t
}

type deviceView struct {
	ID    string `json:"id" yaml:"id"`
	Token string `json:"token" yaml:"token"`
	IsIOS bool   `json:"is_ios" yaml:"is_ios"`
}

func (d deviceView) row() []string {
	platform := "android"
	if d.IsIOS {
		platform = "ios"
	}
	return []string{d.ID, platform, domain.MaskDeviceToken(d.Token)}
}

var deviceHeaders = []string{"ID", "PLATFORM", "TOKEN"}

func (d deviceView) Table() *output.Table {
	t := output.NewTable(deviceHeaders...)
	t.AddRow(d.row()...)
	return t
}

type devicesView struct {
	Devices []deviceView `json:"devices" yaml:"devices"`
}

func (l devicesView) Table() *output.Table {
	t := output.NewTable(deviceHeaders...)
	for _, d := range l.Devices {
		t.AddRow(d.row()...)
	}
	return t
}
