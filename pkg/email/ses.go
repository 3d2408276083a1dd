package email

import (
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"
	"go.uber.org/zap"
)

// SESAPI is the part of the SES v2 client used for sending.
type SESAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// SESSender sends mail through Amazon SES v2.
type SESSender struct {
	client SESAPI
	from   string
	logger *zap.Logger
}

// NewSES creates an SES sender. Static credentials are used when set, otherwise the default chain.
func NewSES(ctx context.Context, cfg Config, logger *zap.Logger) (*SESSender, error) {
	if cfg.Region == "" {
		return nil, errors.New("ses: region is required")
	}
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("ses: load aws config: %w", err)
	}
	return NewSESWithClient(sesv2.NewFromConfig(awsCfg), cfg, logger), nil
}

// NewSESWithClient creates an SES sender around an existing client.
func NewSESWithClient(client SESAPI, cfg Config, logger *zap.Logger) *SESSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SESSender{client: client, from: cfg.from(), logger: logger}
}

// Send delivers msg as a simple text email.
func (s *SESSender) Send(ctx context.Context, msg Message) error {
	out, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(s.from),
		Destination:      &types.Destination{ToAddresses: []string{msg.To}},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(msg.Subject)},
				Body:    &types.Body{Text: &types.Content{Data: aws.String(msg.Body)}},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("ses send: %w", err)
	}
	if out == nil {
		return errors.New("ses send: empty response")
	}
	s.logger.Debug("ses email sent", zap.String("to", msg.To), zap.String("message_id", aws.ToString(out.MessageId)))
	return nil
}
