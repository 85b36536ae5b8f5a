package notify

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/bwmarrin/discordgo"

	"github.com/dukerupert/signups/internal/identity"
	"github.com/dukerupert/signups/internal/model"
)

type sent struct {
	kind, to, subject, body string
}

type fakeMailer struct {
	sent []sent
	err  error
}

func (f *fakeMailer) SendLoginCode(ctx context.Context, to string, userID int64, magicCode, otp string) error {
	f.sent = append(f.sent, sent{kind: "login", to: to, body: otp + " " + magicCode})
	return f.err
}

func (f *fakeMailer) SendSignupConfirmation(ctx context.Context, to, name, eventTitle, itemTitle string, quantity int) error {
	f.sent = append(f.sent, sent{kind: "confirm", to: to, subject: eventTitle, body: itemTitle})
	return f.err
}

func (f *fakeMailer) SendAlert(ctx context.Context, to, subject, body string) error {
	f.sent = append(f.sent, sent{kind: "alert", to: to, subject: subject, body: body})
	return f.err
}

type fakeTexter struct {
	sent []sent
}

func (f *fakeTexter) SendOTP(ctx context.Context, phone, otp string) error {
	f.sent = append(f.sent, sent{kind: "otp", to: phone, body: otp})
	return nil
}

func (f *fakeTexter) SendOptIn(ctx context.Context, phone string) error {
	f.sent = append(f.sent, sent{kind: "optin", to: phone})
	return nil
}

type fakeDiscord struct {
	channel  string
	messages []string
}

func (f *fakeDiscord) ChannelMessageSend(channelID, content string, options ...discordgo.RequestOption) (*discordgo.Message, error) {
	f.channel = channelID
	f.messages = append(f.messages, content)
	return &discordgo.Message{Content: content}, nil
}

func newDispatcher(opts ...Option) (*Dispatcher, *fakeMailer, *fakeTexter) {
	m := &fakeMailer{}
	s := &fakeTexter{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewDispatcher(m, s, logger, opts...), m, s
}

func TestLoginCodeEmail(t *testing.T) {
	d, m, s := newDispatcher()
	u := &model.User{ID: 1, Email: "a@example.com", Phone: "5035551234", MagicCode: "mc"}

	err := d.LoginCode(context.Background(), &identity.Identification{User: u, OTP: "111111", Channel: identity.ChannelEmail})
	if err != nil {
		t.Fatalf("login code: %v", err)
	}
	if len(m.sent) != 1 || m.sent[0].to != "a@example.com" || m.sent[0].body != "111111 mc" {
		t.Errorf("mail sent = %+v", m.sent)
	}
	if len(s.sent) != 0 {
		t.Errorf("sms should not be used, sent = %+v", s.sent)
	}
}

func TestLoginCodePhone(t *testing.T) {
	d, m, s := newDispatcher()
	u := &model.User{ID: 1, Email: "a@example.com", Phone: "5035551234"}

	err := d.LoginCode(context.Background(), &identity.Identification{User: u, OTP: "222222", Channel: identity.ChannelPhone})
	if err != nil {
		t.Fatalf("login code: %v", err)
	}
	if len(s.sent) != 1 || s.sent[0].to != "5035551234" || s.sent[0].body != "222222" {
		t.Errorf("sms sent = %+v", s.sent)
	}
	if len(m.sent) != 0 {
		t.Errorf("email should not be used, sent = %+v", m.sent)
	}
}

func TestLoginCodeNoFallback(t *testing.T) {
	d, m, _ := newDispatcher()
	u := &model.User{ID: 1, Email: "a@example.com"}

	err := d.LoginCode(context.Background(), &identity.Identification{User: u, OTP: "333333", Channel: identity.ChannelPhone})
	if !errors.Is(err, ErrNoAddress) {
		t.Fatalf("err = %v, want ErrNoAddress", err)
	}
	if len(m.sent) != 0 {
		t.Error("must not fall back to email")
	}
}

func TestLoginCodeDeliveryError(t *testing.T) {
	d, m, _ := newDispatcher()
	m.err = errors.New("postmark down")
	u := &model.User{ID: 1, Email: "a@example.com"}

	err := d.LoginCode(context.Background(), &identity.Identification{User: u, OTP: "1", Channel: identity.ChannelEmail})
	if err == nil {
		t.Fatal("expected delivery error")
	}
}

func TestRegisteredOptIn(t *testing.T) {
	d, _, s := newDispatcher()
	d.Registered(context.Background(), &model.User{ID: 1, Email: "a@example.com"})
	if len(s.sent) != 0 {
		t.Error("no opt-in without phone")
	}
	d.Registered(context.Background(), &model.User{ID: 2, Phone: "5035551234"})
	if len(s.sent) != 1 || s.sent[0].kind != "optin" {
		t.Errorf("sms sent = %+v", s.sent)
	}
}

func TestSignupCreatedAlerts(t *testing.T) {
	disc := &fakeDiscord{}
	d, m, _ := newDispatcher(WithDiscord(disc, "chan-1"))

	u := &model.User{ID: 1, Name: "Alice", Email: "a@example.com"}
	ev := &model.Event{ID: 3, Title: "Winter Drive", AlertOnSignup: true, AlertEmail: "org@example.com"}
	it := &model.Item{ID: 4, Title: "Coats"}
	s := &model.Signup{ID: 5, Quantity: 2, Comment: "size M"}

	d.SignupCreated(context.Background(), u, ev, it, s)

	if len(m.sent) != 2 {
		t.Fatalf("mail sent = %+v, want confirmation and alert", m.sent)
	}
	if m.sent[0].kind != "confirm" || m.sent[0].to != "a@example.com" {
		t.Errorf("confirmation = %+v", m.sent[0])
	}
	if m.sent[1].kind != "alert" || m.sent[1].to != "org@example.com" || !strings.Contains(m.sent[1].body, "size M") {
		t.Errorf("alert = %+v", m.sent[1])
	}
	if disc.channel != "chan-1" || len(disc.messages) != 1 || !strings.Contains(disc.messages[0], "Winter Drive") {
		t.Errorf("discord = %+v", disc)
	}
}

func TestSignupCreatedNoAlert(t *testing.T) {
	disc := &fakeDiscord{}
	d, m, _ := newDispatcher(WithDiscord(disc, "chan-1"))

	d.SignupCreated(context.Background(),
		&model.User{ID: 1, Name: "Bob", Phone: "5035551234"},
		&model.Event{ID: 3, Title: "Drive"},
		&model.Item{ID: 4, Title: "Socks"},
		&model.Signup{ID: 5, Quantity: 1},
	)
	if len(m.sent) != 0 || len(disc.messages) != 0 {
		t.Errorf("unexpected sends: mail=%+v discord=%+v", m.sent, disc.messages)
	}
}

func TestSignupCanceledAlert(t *testing.T) {
	d, m, _ := newDispatcher()
	ev := &model.Event{ID: 3, Title: "Drive", AlertOnCancel: true, AlertEmail: "org@example.com"}

	d.SignupCanceled(context.Background(), &model.User{Name: "Alice"}, ev, &model.Item{Title: "Coats"}, &model.Signup{Quantity: 1})
	if len(m.sent) != 1 || m.sent[0].subject != "Signup canceled: Drive" {
		t.Errorf("mail sent = %+v", m.sent)
	}
}
