// Package sms sends text messages through Amazon SNS.
package sms

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/aws/aws-sdk-go-v2/service/sns/types"
)

var ErrNotConfigured = errors.New("sms sender not configured")

// publisher is the part of *sns.Client used here.
type publisher interface {
	Publish(ctx context.Context, input *sns.PublishInput, opts ...func(*sns.Options)) (*sns.PublishOutput, error)
}

type Config struct {
	Region            string
	AccessKey         string
	SecretKey         string
	OriginationNumber string
}

type Sender struct {
	client      publisher
	origination string
}

// NewSender returns a Sender backed by SNS. With no credentials the sender is
// left unconfigured and every Send returns ErrNotConfigured.
func NewSender(cfg Config) *Sender {
	s := &Sender{origination: cfg.OriginationNumber}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		s.client = sns.New(sns.Options{
			Region:      cfg.Region,
			Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		})
	}
	return s
}

func (s *Sender) Configured() bool {
	return s.client != nil
}

// Send delivers message to a normalized 10-digit US number.
func (s *Sender) Send(ctx context.Context, phone, message string) error {
	if s.client == nil {
		return ErrNotConfigured
	}
	attrs := map[string]types.MessageAttributeValue{
		"AWS.SNS.SMS.SMSType": {
			DataType:    aws.String("String"),
			StringValue: aws.String("Transactional"),
		},
	}
	if s.origination != "" {
		attrs["AWS.MM.SMS.OriginationNumber"] = types.MessageAttributeValue{
			DataType:    aws.String("String"),
			StringValue: aws.String(s.origination),
		}
	}
	_, err := s.client.Publish(ctx, &sns.PublishInput{
		PhoneNumber:       aws.String("+1" + phone),
		Message:           aws.String(message),
		MessageAttributes: attrs,
	})
	if err != nil {
		return fmt.Errorf("publish sms: %w", err)
	}
	return nil
}

// SendOTP texts a login code.
func (s *Sender) SendOTP(ctx context.Context, phone, otp string) error {
	return s.Send(ctx, phone, fmt.Sprintf("E4L Signups: Your OTP is %s.\nReply STOP to opt-out.", otp))
}

// SendOptIn confirms a newly registered number.
func (s *Sender) SendOptIn(ctx context.Context, phone string) error {
	return s.Send(ctx, phone, "E4L Signups: You are now opted in to receive login codes by text. Msg & data rates may apply.\nReply STOP to opt-out.")
}
