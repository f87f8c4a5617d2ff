package export

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/cordonsoft/accountreview/internal/logger"
	"github.com/cordonsoft/accountreview/internal/mail"
)

// Channel identifies a delivery channel.
type Channel string

const (
	ChannelLog   Channel = "log"
	ChannelLocal Channel = "local"
	ChannelMail  Channel = "mail"
)

// ErrRecipientRequired is returned when mail delivery is requested without a
// recipient. It fires before any transport call is attempted.
var ErrRecipientRequired = errors.New("a recipient is required for mail delivery")

// ErrOutputPathRequired is returned when local delivery has neither an
// explicit output path nor an entity label to derive one from.
var ErrOutputPathRequired = errors.New("an output path is required for local delivery")

// ParseChannel validates a delivery method token.
func ParseChannel(s string) (Channel, error) {
	switch Channel(s) {
	case ChannelLog, ChannelLocal, ChannelMail:
		return Channel(s), nil
	default:
		return "", fmt.Errorf("delivery method %q is not supported, use log, local or mail", s)
	}
}

// Options carries channel-specific delivery settings.
type Options struct {
	OutputPath string // local: explicit target file, overrides the derived name
	OutputDir  string // local: directory for the derived name
	Recipient  string // mail: destination address
	Emitter    string // mail: sender address
}

// DeliveryResult reports where the export ended up.
type DeliveryResult struct {
	Channel  Channel
	Location string // written path, recipient address, or "stdout"
}

// FileName derives the deterministic export file name. The exact form is a
// compatibility contract with downstream consumers of the exports.
func FileName(entityLabel string, format Format, ts time.Time) string {
	return fmt.Sprintf("accounts_review_%s_%s.%s",
		entityLabel, ts.Format("2006-01-02_15-04-05"), format.Extension())
}

// Dispatcher routes serialized bytes to a delivery channel.
type Dispatcher struct {
	out       io.Writer
	transport mail.Transport
	now       func() time.Time
	logger    *logger.Logger
}

// NewDispatcher creates a dispatcher writing log deliveries to out and mail
// deliveries through transport.
func NewDispatcher(out io.Writer, transport mail.Transport, log *logger.Logger) *Dispatcher {
	if out == nil {
		out = os.Stdout
	}
	if log == nil {
		log = logger.NewDefault()
	}
	return &Dispatcher{
		out:       out,
		transport: transport,
		now:       time.Now,
		logger:    log,
	}
}

// Deliver routes content to the requested channel and reports the location.
// Failures propagate immediately; no retry is performed anywhere.
func (d *Dispatcher) Deliver(ctx context.Context, content []byte, format Format, entityLabel string, channel Channel, opts Options) (*DeliveryResult, error) {
	switch channel {
	case ChannelLog:
		return d.deliverLog(content)
	case ChannelLocal:
		return d.deliverLocal(content, format, entityLabel, opts)
	case ChannelMail:
		return d.deliverMail(ctx, content, format, entityLabel, opts)
	default:
		return nil, fmt.Errorf("delivery method %q is not supported, use log, local or mail", channel)
	}
}

func (d *Dispatcher) deliverLog(content []byte) (*DeliveryResult, error) {
	if _, err := d.out.Write(content); err != nil {
		return nil, fmt.Errorf("failed to write export to output stream: %w", err)
	}
	return &DeliveryResult{Channel: ChannelLog, Location: "stdout"}, nil
}

func (d *Dispatcher) deliverLocal(content []byte, format Format, entityLabel string, opts Options) (*DeliveryResult, error) {
	path := opts.OutputPath
	if path == "" {
		if entityLabel == "" {
			return nil, ErrOutputPathRequired
		}
		path = filepath.Join(opts.OutputDir, FileName(entityLabel, format, d.now()))
	}

	if err := os.WriteFile(path, content, 0644); err != nil {
		return nil, fmt.Errorf("failed to write export file %q: %w", path, err)
	}

	d.logger.Infow("Export written to local file", "path", path, "bytes", len(content))
	return &DeliveryResult{Channel: ChannelLocal, Location: path}, nil
}

func (d *Dispatcher) deliverMail(ctx context.Context, content []byte, format Format, entityLabel string, opts Options) (*DeliveryResult, error) {
	if opts.Recipient == "" {
		return nil, ErrRecipientRequired
	}
	if d.transport == nil {
		return nil, fmt.Errorf("no mail transport configured")
	}

	now := d.now()
	msg := mail.Message{
		From:    opts.Emitter,
		To:      opts.Recipient,
		Subject: fmt.Sprintf("Account review %s - Export %s", entityLabel, now.Format("02/01/2006")),
		Body:    "Please find attached the exported account data.",
		Attachment: mail.Attachment{
			Name:     FileName(entityLabel, format, now),
			MIMEType: format.MIMEType(),
			Content:  content,
		},
	}

	if err := d.transport.Send(ctx, msg); err != nil {
		return nil, fmt.Errorf("mail delivery to %q failed: %w", opts.Recipient, err)
	}

	d.logger.Infow("Export sent by mail", "recipient", opts.Recipient, "attachment", msg.Attachment.Name)
	return &DeliveryResult{Channel: ChannelMail, Location: opts.Recipient}, nil
}
