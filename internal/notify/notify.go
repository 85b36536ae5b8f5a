// Package notify routes outbound messages: login codes go out on the channel
// the user was identified by, organizer alerts go to email and Discord.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/bwmarrin/discordgo"

	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/model"
)

var ErrNoAddress = errors.New("user has no address on the requested channel")

type Mailer interface {
	SendLoginCode(ctx context.Context, toEmail string, userID int64, magicCode, otp string) error
	SendSignupConfirmation(ctx context.Context, toEmail, name, eventTitle, itemTitle string, quantity int) error
	SendAlert(ctx context.Context, toEmail, subject, body string) error
}

type Texter interface {
	SendOTP(ctx context.Context, phone, otp string) error
	SendOptIn(ctx context.Context, phone string) error
}

// ChannelPoster is the part of *discordgo.Session used for alerts.
type ChannelPoster interface {
	ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

type Dispatcher struct {
	mail      Mailer
	sms       Texter
	discord   ChannelPoster
	channelID string
	logger    *slog.Logger
}

type Option func(*Dispatcher)

// WithDiscord posts organizer alerts to a Discord channel as well.
func WithDiscord(poster ChannelPoster, channelID string) Option {
	return func(d *Dispatcher) {
		d.discord = poster
		d.channelID = channelID
	}
}

func NewDispatcher(mail Mailer, sms Texter, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		mail:   mail,
		sms:    sms,
		logger: logger.With("component", "notify"),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// LoginCode delivers a freshly issued code on the channel the user was
// looked up by. It never falls back to the other channel.
func (d *Dispatcher) LoginCode(ctx context.Context, id *identity.Identification) error {
	u := id.User
	switch id.Channel {
	case identity.ChannelEmail:
		if u.Email == "" {
			return ErrNoAddress
		}
		if err := d.mail.SendLoginCode(ctx, u.Email, u.ID, u.MagicCode, id.OTP); err != nil {
			return fmt.Errorf("email login code: %w", err)
		}
	case identity.ChannelPhone:
		if u.Phone == "" {
			return ErrNoAddress
		}
		if err := d.sms.SendOTP(ctx, u.Phone, id.OTP); err != nil {
			return fmt.Errorf("text login code: %w", err)
		}
	default:
		return fmt.Errorf("unknown channel %q", id.Channel)
	}
	d.logger.Info("login code sent", "user_id", u.ID, "channel", id.Channel)
	return nil
}

// Registered texts the SMS opt-in notice to a new user with a phone.
func (d *Dispatcher) Registered(ctx context.Context, u *model.User) {
	if u.Phone == "" {
		return
	}
	if err := d.sms.SendOptIn(ctx, u.Phone); err != nil {
		d.logger.Error("sms opt-in", "user_id", u.ID, "error", err)
	}
}

// SignupCreated confirms the pledge to the donor and alerts organizers when
// the event asks for it.
func (d *Dispatcher) SignupCreated(ctx context.Context, u *model.User, ev *model.Event, it *model.Item, s *model.Signup) {
	if u.Email != "" {
		if err := d.mail.SendSignupConfirmation(ctx, u.Email, u.Name, ev.Title, it.Title, s.Quantity); err != nil {
			d.logger.Error("signup confirmation", "signup_id", s.ID, "error", err)
		}
	}
	if !ev.AlertOnSignup {
		return
	}
	subject := fmt.Sprintf("New signup: %s", ev.Title)
	body := fmt.Sprintf("%s signed up to bring %d x %s.", u.Name, s.Quantity, it.Title)
	if s.Comment != "" {
		body += "\nComment: " + s.Comment
	}
	d.alert(ctx, ev, subject, body)
}

// SignupCanceled alerts organizers about a cancellation when the event asks for it.
func (d *Dispatcher) SignupCanceled(ctx context.Context, u *model.User, ev *model.Event, it *model.Item, s *model.Signup) {
	if !ev.AlertOnCancel {
		return
	}
	subject := fmt.Sprintf("Signup canceled: %s", ev.Title)
	body := fmt.Sprintf("%s canceled %d x %s.", u.Name, s.Quantity, it.Title)
	d.alert(ctx, ev, subject, body)
}

func (d *Dispatcher) alert(ctx context.Context, ev *model.Event, subject, body string) {
	if ev.AlertEmail != "" {
		if err := d.mail.SendAlert(ctx, ev.AlertEmail, subject, body); err != nil {
			d.logger.Error("email alert", "event_id", ev.ID, "error", err)
		}
	}
	if d.discord == nil || d.channelID == "" {
		return
	}
	if _, err := d.discord.ChannelMessageSend(d.channelID, "**"+subject+"**\n"+body); err != nil {
		d.logger.Error("discord alert", "event_id", ev.ID, "error", err)
	}
}
