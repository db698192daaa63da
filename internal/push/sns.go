package push

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	awssns "github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"

	"github.com/MiaKoring/BloomBuddyServer/internal/core/domain"
	"github.com/MiaKoring/BloomBuddyServer/internal/core/service"
	"github.com/MiaKoring/BloomBuddyServer/internal/telemetry/logger"
	"github.com/MiaKoring/BloomBuddyServer/pkg/cmap"
)

// Delivery errors.
var (
	ErrUnsupportedPlatform = errors.New("push: no platform application for device")
	ErrExpired             = errors.New("push: notification expired before delivery")
)

// SNSAPI is the subset of the SNS client used by SNSTransport.
type SNSAPI interface {
	CreatePlatformEndpoint(ctx context.Context, params *awssns.CreatePlatformEndpointInput, optFns ...func(*awssns.Options)) (*awssns.CreatePlatformEndpointOutput, error)
	Publish(ctx context.Context, params *awssns.PublishInput, optFns ...func(*awssns.Options)) (*awssns.PublishOutput, error)
}

// SNSConfig configures SNSTransport.
type SNSConfig struct {
	// Region is the AWS region of the platform applications.
	Region string

	// APNSPlatformARN is the SNS platform application for iOS devices.
	APNSPlatformARN string

	// FCMPlatformARN is the SNS platform application for other devices.
	// Optional; deliveries to non-iOS devices fail without it.
	FCMPlatformARN string

	// Sandbox selects the APNs development environment.
	Sandbox bool

	// Topic is the APNs topic. Default: DefaultTopic
	Topic string
}

// SNSTransport implements service.Transport with AWS SNS mobile push.
type SNSTransport struct {
	api       SNSAPI
	cfg       SNSConfig
	log       logger.Logger
	now       func() time.Time
	endpoints *cmap.Map[string, string] // endpointKey -> endpoint ARN
}

var _ service.Transport = (*SNSTransport)(nil)

// NewSNSTransport loads AWS credentials from the default chain and
// creates a transport.
func NewSNSTransport(ctx context.Context, cfg SNSConfig, log logger.Logger) (*SNSTransport, error) {
	if cfg.APNSPlatformARN == "" {
		return nil, fmt.Errorf("push: apns platform arn is required")
	}

	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("push: load aws config: %w", err)
	}
	return NewSNSTransportWithClient(awssns.NewFromConfig(awsCfg), cfg, log), nil
}

// NewSNSTransportWithClient creates a transport over an existing client.
func NewSNSTransportWithClient(api SNSAPI, cfg SNSConfig, log logger.Logger) *SNSTransport {
	if cfg.Topic == "" {
		cfg.Topic = DefaultTopic
	}
	if log == nil {
		log = logger.Default()
	}
	return &SNSTransport{
		api:       api,
		cfg:       cfg,
		log:       log.With("component", "push.sns"),
		now:       time.Now,
		endpoints: cmap.New[string, string](),
	}
}

// Deliver publishes payload to one device.
func (t *SNSTransport) Deliver(ctx context.Context, device *domain.Device, payload domain.Payload, expiration time.Time) error {
	ttl := expiration.Sub(t.now()).Truncate(time.Second)
	if ttl <= 0 {
		return ErrExpired
	}

	appARN := t.cfg.FCMPlatformARN
	if device.IsIOS {
		appARN = t.cfg.APNSPlatformARN
	}
	if appARN == "" {
		return ErrUnsupportedPlatform
	}

	input, err := t.publishInput(device, payload, ttl)
	if err != nil {
		return err
	}

	endpoint, err := t.endpoint(ctx, appARN, device)
	if err != nil {
		return err
	}
	input.TargetArn = aws.String(endpoint)

	if _, err := t.api.Publish(ctx, input); err != nil {
		var disabled *types.EndpointDisabledException
		if errors.As(err, &disabled) {
			// Recreate the endpoint on the next delivery.
			t.endpoints.Delete(endpointKey(appARN, device.Token))
		}
		return fmt.Errorf("publish to %s: %w", domain.MaskDeviceToken(device.Token), err)
	}

	t.log.Debug("notification published",
		"device_id", device.ID,
		"kind", string(payload.Kind),
		"ttl", ttl)
	return nil
}

func (t *SNSTransport) publishInput(device *domain.Device, payload domain.Payload, ttl time.Duration) (*awssns.PublishInput, error) {
	var (
		key   string
		body  []byte
		attrs map[string]types.MessageAttributeValue
		err   error
	)
	if device.IsIOS {
		key = "APNS"
		if t.cfg.Sandbox {
			key = "APNS_SANDBOX"
		}
		body, err = apnsBody(payload)
		attrs = apnsAttributes(payload, ttl, t.cfg.Topic)
	} else {
		key = "GCM"
		body, err = fcmBody(payload)
		attrs = fcmAttributes(ttl)
	}
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}

	msg, err := snsMessage(key, body, payload)
	if err != nil {
		return nil, fmt.Errorf("encode message: %w", err)
	}

	return &awssns.PublishInput{
		Message:           aws.String(msg),
		MessageStructure:  aws.String("json"),
		MessageAttributes: attrs,
	}, nil
}

// endpointKey scopes a cached endpoint to its platform application; one
// token may be registered for both platforms.
func endpointKey(appARN, token string) string {
	return appARN + "/" + token
}

// endpoint returns the cached endpoint ARN for the device token, creating
// the platform endpoint on first use. CreatePlatformEndpoint is idempotent
// for the same token.
func (t *SNSTransport) endpoint(ctx context.Context, appARN string, device *domain.Device) (string, error) {
	key := endpointKey(appARN, device.Token)
	if arn, ok := t.endpoints.Get(key); ok {
		return arn, nil
	}

	out, err := t.api.CreatePlatformEndpoint(ctx, &awssns.CreatePlatformEndpointInput{
		PlatformApplicationArn: aws.String(appARN),
		Token:                  aws.String(device.Token),
	})
	if err != nil {
		return "", fmt.Errorf("create endpoint for %s: %w", domain.MaskDeviceToken(device.Token), err)
	}

	arn := aws.ToString(out.EndpointArn)
	t.endpoints.Set(key, arn)
	return arn, nil
}

// CachedEndpoints returns the number of cached endpoint ARNs.
func (t *SNSTransport) CachedEndpoints() int {
	return t.endpoints.Count()
}
