package push

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
)

// DefaultTopic is the APNs topic (app bundle id) of the BloomBuddy app.
const DefaultTopic = "de.touchthegrass.BloomBuddy"

// priorityConsiderPower lets APNs batch delivery with the device's power
// state. Background pushes require it; alerts use it as well.
const priorityConsiderPower = "5"

// SNS message attribute names for APNs delivery options.
const (
	attrAPNSTTL      = "AWS.SNS.MOBILE.APNS.TTL"
	attrAPNSPushType = "AWS.SNS.MOBILE.APNS.PUSH_TYPE"
	attrAPNSPriority = "AWS.SNS.MOBILE.APNS.PRIORITY"
	attrAPNSTopic    = "AWS.SNS.MOBILE.APNS.TOPIC"
	attrFCMTTL       = "AWS.SNS.MOBILE.FCM.TTL"
)

type apsAlert struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
}

type aps struct {
	Alert            *apsAlert `json:"alert,omitempty"`
	ContentAvailable int       `json:"content-available,omitempty"`
}

// apnsBody builds the APNs JSON document. Background payloads carry the
// sensor record next to the aps dictionary.
func apnsBody(p domain.Payload) ([]byte, error) {
	doc := map[string]any{}
	switch p.Kind {
	case domain.PayloadBackground:
		doc["aps"] = aps{ContentAvailable: 1}
		if p.Data != nil {
			doc["id"] = p.Data.ID
			doc["name"] = p.Data.Name
			doc["sensor"] = p.Data.Sensor
			doc["battery"] = p.Data.Battery
			doc["model"] = p.Data.Model
		}
	default:
		alert := &apsAlert{}
		if p.Alert != nil {
			alert.Title = p.Alert.Title
			alert.Subtitle = p.Alert.Subtitle
		}
		doc["aps"] = aps{Alert: alert}
	}
	return json.Marshal(doc)
}

// fcmBody builds the FCM (GCM key) JSON document.
func fcmBody(p domain.Payload) ([]byte, error) {
	doc := map[string]any{}
	switch p.Kind {
	case domain.PayloadBackground:
		if p.Data != nil {
			data := map[string]string{
				"id":    p.Data.ID,
				"name":  p.Data.Name,
				"model": strconv.Itoa(p.Data.Model.Code()),
			}
			if p.Data.Sensor != nil {
				data["sensor"] = domain.FormatValue(*p.Data.Sensor)
			}
			if p.Data.Battery != nil {
				data["battery"] = strconv.Itoa(*p.Data.Battery)
			}
			doc["data"] = data
		}
	default:
		if p.Alert != nil {
			doc["notification"] = map[string]string{
				"title": p.Alert.Title,
				"body":  p.Alert.Subtitle,
			}
		}
	}
	return json.Marshal(doc)
}

// snsMessage wraps the platform document into an SNS json-structured
// message.
func snsMessage(platformKey string, body []byte, p domain.Payload) (string, error) {
	def := ""
	if p.Alert != nil {
		def = p.Alert.Title
	}
	msg, err := json.Marshal(map[string]string{
		"default":   def,
		platformKey: string(body),
	})
	if err != nil {
		return "", err
	}
	return string(msg), nil
}

func apnsAttributes(p domain.Payload, ttl time.Duration, topic string) map[string]types.MessageAttributeValue {
	pushType := "alert"
	if p.Kind == domain.PayloadBackground {
		pushType = "background"
	}
	return map[string]types.MessageAttributeValue{
		attrAPNSTTL:      stringAttr(strconv.FormatInt(int64(ttl/time.Second), 10)),
		attrAPNSPushType: stringAttr(pushType),
		attrAPNSPriority: stringAttr(priorityConsiderPower),
		attrAPNSTopic:    stringAttr(topic),
	}
}

func fcmAttributes(ttl time.Duration) map[string]types.MessageAttributeValue {
	return map[string]types.MessageAttributeValue{
		attrFCMTTL: stringAttr(strconv.FormatInt(int64(ttl/time.Second), 10)),
	}
}

func stringAttr(v string) types.MessageAttributeValue {
	return types.MessageAttributeValue{
		DataType:    aws.String("String"),
		StringValue: aws.String(v),
	}
}
