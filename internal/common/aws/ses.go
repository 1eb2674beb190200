package aws

import (
	"context"
	"errors"

	awssdk "github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
)

// SESAPI is the part of *ses.Client the email sender uses.
type SESAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type EmailSender struct {
	api  SESAPI
	from string
}

func NewEmailSender(api SESAPI, from string) *EmailSender {
	return &EmailSender{api: api, from: from}
}

// Send delivers a plain-text email and returns the SES message id.
func (s *EmailSender) Send(ctx context.Context, to, subject, body string) (string, error) {
	if to == "" {
		return "", errors.New("email recipient is empty")
	}

	out, err := s.api.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: awssdk.String(subject), Charset: awssdk.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: awssdk.String(body), Charset: awssdk.String("UTF-8")},
			},
		},
		Source: awssdk.String(s.from),
	})
	if err != nil {
		return "", err
	}
	return awssdk.ToString(out.MessageId), nil
}
