package mailer

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"github.com/google/uuid"
	"github.com/ignite/relay-gateway/internal/pkg/logger"
)

// SESConfig configures the AWS SES v2 relay vendor.
type SESConfig struct {
	AccessKey string
	SecretKey string
	Region    string
}

// SESMailer delivers through AWS SES v2 instead of a raw SMTP relay.
// SES manages its own connection handling, so there is no pool here;
// concurrency is bounded by the dispatch engine.
type SESMailer struct {
	region string
	client *sesv2.Client
}

// NewSESMailer creates an SES mailer from static credentials. Falls back
// to the default AWS credential chain when no keys are configured.
func NewSESMailer(cfg SESConfig) (*SESMailer, error) {
	if cfg.Region == "" {
		cfg.Region = "us-east-1"
	}

	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	logger.Info("ses mailer initialized", "region", cfg.Region)
	return &SESMailer{region: cfg.Region, client: sesv2.NewFromConfig(awsCfg)}, nil
}

// Deliver sends one message through SES. Messages with attachments go out
// as raw MIME; plain text/html messages use the structured API.
func (m *SESMailer) Deliver(ctx context.Context, msg *Message) (*Receipt, error) {
	if len(msg.To) == 0 {
		return nil, &TransportError{Op: "deliver", Reason: "message has no recipients"}
	}

	input := &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(msg.From),
		Destination:      &types.Destination{ToAddresses: msg.To},
		Content:          sesContent(msg),
	}

	result, err := m.client.SendEmail(ctx, input)
	if err != nil {
		logger.Warn("ses rejected delivery", "to", msg.To, "error", err.Error())
		return nil, &TransportError{Op: "deliver", Reason: err.Error()}
	}

	messageID := aws.ToString(result.MessageId)
	return &Receipt{
		MessageID: messageID,
		Response:  fmt.Sprintf("250 Ok %s", messageID),
	}, nil
}

// HealthCheck verifies credentials and reachability via GetAccount.
func (m *SESMailer) HealthCheck(ctx context.Context) error {
	account, err := m.client.GetAccount(ctx, &sesv2.GetAccountInput{})
	if err != nil {
		return &TransportError{Op: "healthcheck", Reason: err.Error()}
	}
	if !account.SendingEnabled {
		return &TransportError{Op: "healthcheck", Reason: "ses sending is disabled for this account"}
	}
	return nil
}

func sesContent(msg *Message) *types.EmailContent {
	if len(msg.Attachments) > 0 {
		return &types.EmailContent{
			Raw: &types.RawMessage{Data: buildMIME(msg, uuid.New().String()+"@ses")},
		}
	}

	body := &types.Body{}
	if msg.HTMLBody != "" {
		body.Html = &types.Content{Data: aws.String(msg.HTMLBody), Charset: aws.String("UTF-8")}
	}
	if msg.TextBody != "" {
		body.Text = &types.Content{Data: aws.String(msg.TextBody), Charset: aws.String("UTF-8")}
	}
	return &types.EmailContent{
		Simple: &types.Message{
			Subject: &types.Content{Data: aws.String(msg.Subject), Charset: aws.String("UTF-8")},
			Body:    body,
		},
	}
}
