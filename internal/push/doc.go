// Package push delivers notifications to mobile devices.
//
// SNSTransport publishes through AWS SNS mobile push: each device token
// is registered once as a platform endpoint and the endpoint ARN is cached
// for later publishes. iOS devices receive APNs payloads; other devices are
// served through an FCM platform application when one is configured.
//
// LogTransport only logs deliveries and is meant for development setups
// without push credentials.
package push
