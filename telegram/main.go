package telegram

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"vocabtextdev/conversation"
	"vocabtextdev/logger"
)

// Bots may only download files up to 20 MB.
const maxDownloadSize = 20 << 20

const voiceFailedMessage = "Sorry, I couldn't understand that voice message. Please type it instead."

type Handler interface {
	Handle(ctx context.Context, ev conversation.Event, out conversation.Responder)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte) (string, error)
}

type TelegramConnectProps struct {
	Logger  *logger.LogMiddleware
	Handler Handler
	// Transcriber is optional. Voice notes are ignored without it.
	Transcriber          Transcriber
	Token                string
	Debug                bool
	MaxConcurrentUpdates int64
	// APIEndpoint and FileEndpoint default to the public Bot API.
	APIEndpoint  string
	FileEndpoint string
}

type Telegram struct {
	logger       *logger.LogMiddleware
	bot          *tgbotapi.BotAPI
	handler      Handler
	transcriber  Transcriber
	fileEndpoint string
	sem          *semaphore.Weighted

	mu     sync.Mutex
	queues map[int64]*userQueue
	wg     sync.WaitGroup
}

// userQueue holds one user's updates in arrival order while a worker drains it.
type userQueue struct {
	pending []tgbotapi.Update
}

func Connect(ctx context.Context, args TelegramConnectProps) (*Telegram, error) {
	tracer := otel.Tracer("telegram/Connect")
	ctx, span := tracer.Start(ctx, "Connect")
	defer span.End()

	if args.Token == "" {
		return nil, fmt.Errorf("telegram bot token not set")
	}

	apiEndpoint := args.APIEndpoint
	if apiEndpoint == "" {
		apiEndpoint = tgbotapi.APIEndpoint
	}
	fileEndpoint := args.FileEndpoint
	if fileEndpoint == "" {
		fileEndpoint = tgbotapi.FileEndpoint
	}
	maxUpdates := args.MaxConcurrentUpdates
	if maxUpdates < 1 {
		maxUpdates = 1
	}

	bot, err := tgbotapi.NewBotAPIWithAPIEndpoint(args.Token, apiEndpoint)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to create Telegram bot: %w", err)
	}
	bot.Debug = args.Debug

	span.SetAttributes(
		attribute.String("bot.username", bot.Self.UserName),
		attribute.Bool("bot.debug", args.Debug),
	)

	args.Logger.Logger(ctx).Info("[Telegram] Bot connected successfully",
		zap.String("username", bot.Self.UserName),
		zap.Bool("debug", args.Debug),
		zap.Bool("voice_notes", args.Transcriber != nil),
	)

	return &Telegram{
		logger:       args.Logger,
		bot:          bot,
		handler:      args.Handler,
		transcriber:  args.Transcriber,
		fileEndpoint: fileEndpoint,
		sem:          semaphore.NewWeighted(maxUpdates),
		queues:       make(map[int64]*userQueue),
	}, nil
}

// Listen long-polls for updates until ctx is cancelled, then waits for in-flight updates.
// Different users are handled concurrently; one user's updates run one at a time in arrival order.
func (t *Telegram) Listen(ctx context.Context) {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := t.bot.GetUpdatesChan(u)

	t.logger.Logger(ctx).Info("[Telegram] Starting message listener")

	for {
		select {
		case <-ctx.Done():
			t.logger.Logger(ctx).Info("[Telegram] Shutting down listener")
			t.bot.StopReceivingUpdates()
			t.wg.Wait()
			return
		case update, ok := <-updates:
			if !ok {
				t.wg.Wait()
				return
			}
			t.enqueue(ctx, update)
		}
	}
}

// enqueue appends the update to its sender's queue, starting a worker when none is running.
func (t *Telegram) enqueue(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil {
		return
	}
	userID := update.Message.From.ID

	t.mu.Lock()
	q, running := t.queues[userID]
	if !running {
		q = &userQueue{}
		t.queues[userID] = q
	}
	q.pending = append(q.pending, update)
	t.mu.Unlock()

	if !running {
		t.wg.Add(1)
		go t.drain(ctx, userID, q)
	}
}

func (t *Telegram) drain(ctx context.Context, userID int64, q *userQueue) {
	defer t.wg.Done()

	for {
		t.mu.Lock()
		if len(q.pending) == 0 {
			delete(t.queues, userID)
			t.mu.Unlock()
			return
		}
		update := q.pending[0]
		q.pending = q.pending[1:]
		t.mu.Unlock()

		if ctx.Err() != nil {
			t.logger.Logger(ctx).Warn("[Telegram] Dropping update during shutdown", zap.Int("update_id", update.UpdateID))
			continue
		}
		if err := t.sem.Acquire(ctx, 1); err != nil {
			continue
		}
		t.handleUpdate(ctx, update)
		t.sem.Release(1)
	}
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	tracer := otel.Tracer("telegram/handleUpdate")
	ctx, span := tracer.Start(ctx, "handleUpdate")
	defer span.End()

	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	span.SetAttributes(
		attribute.Int64("user.id", message.From.ID),
		attribute.String("user.username", message.From.UserName),
	)

	out := &responder{bot: t.bot, chatID: message.Chat.ID}

	ev, ok := t.toEvent(ctx, message, out)
	if !ok {
		return
	}

	t.handler.Handle(ctx, ev, out)
}

// toEvent converts a message to a conversation event. It reports false for messages the
// bot does not act on.
func (t *Telegram) toEvent(ctx context.Context, message *tgbotapi.Message, out *responder) (conversation.Event, bool) {
	ev := conversation.Event{UserID: message.From.ID}
	log := t.logger.Logger(ctx).With(zap.Int64("user_id", message.From.ID))

	switch {
	case message.IsCommand():
		ev.Kind = conversation.EventCommand
		ev.Text = message.Command()
		log.Info("[Telegram] Received command", zap.String("command", ev.Text))

	case message.Document != nil:
		ev.Kind = conversation.EventDocument
		log.Info("[Telegram] Received document",
			zap.String("file_name", message.Document.FileName),
			zap.Int("file_size", message.Document.FileSize),
		)
		data, err := t.download(ctx, message.Document.FileID, message.Document.FileSize)
		if err != nil {
			log.Error("[Telegram] Failed to download document", zap.Error(err))
		}
		ev.Document = data

	case message.Voice != nil:
		if t.transcriber == nil {
			return ev, false
		}
		text, err := t.transcribeVoice(ctx, message.Voice)
		if err != nil {
			log.Error("[Telegram] Failed to transcribe voice note", zap.Error(err))
			if err := out.Reply(ctx, voiceFailedMessage); err != nil {
				log.Error("[Telegram] Failed to send reply", zap.Error(err))
			}
			return ev, false
		}
		ev.Kind = conversation.EventText
		ev.Text = text

	case message.Text != "":
		ev.Kind = conversation.EventText
		ev.Text = message.Text
		log.Info("[Telegram] Received message", zap.Int("length", len(message.Text)))

	default:
		return ev, false
	}

	return ev, true
}

func (t *Telegram) transcribeVoice(ctx context.Context, voice *tgbotapi.Voice) (string, error) {
	audio, err := t.download(ctx, voice.FileID, voice.FileSize)
	if err != nil {
		return "", err
	}
	return t.transcriber.Transcribe(ctx, audio)
}

func (t *Telegram) download(ctx context.Context, fileID string, size int) ([]byte, error) {
	tracer := otel.Tracer("telegram/download")
	ctx, span := tracer.Start(ctx, "download")
	defer span.End()

	if size > maxDownloadSize {
		return nil, fmt.Errorf("file too large: %d bytes", size)
	}

	file, err := t.bot.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not look up file: %w", err)
	}

	resp, err := otelhttp.Get(ctx, fmt.Sprintf(t.fileEndpoint, t.bot.Token, file.FilePath))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not download file: status=%d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxDownloadSize))
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("could not read file: %w", err)
	}
	span.SetAttributes(attribute.Int("file.size", len(data)))

	return data, nil
}

// responder sends replies into the chat the event came from.
type responder struct {
	bot    *tgbotapi.BotAPI
	chatID int64
}

func (r *responder) Reply(ctx context.Context, text string) error {
	_, err := r.bot.Send(tgbotapi.NewMessage(r.chatID, text))
	return err
}

func (r *responder) ReplyWithKeyboard(ctx context.Context, text string, rows [][]string) error {
	buttons := make([][]tgbotapi.KeyboardButton, 0, len(rows))
	for _, row := range rows {
		labels := make([]tgbotapi.KeyboardButton, 0, len(row))
		for _, label := range row {
			labels = append(labels, tgbotapi.NewKeyboardButton(label))
		}
		buttons = append(buttons, tgbotapi.NewKeyboardButtonRow(labels...))
	}

	keyboard := tgbotapi.NewReplyKeyboard(buttons...)
	keyboard.OneTimeKeyboard = true
	keyboard.ResizeKeyboard = true

	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyMarkup = keyboard
	_, err := r.bot.Send(msg)
	return err
}

func (r *responder) ReplyRemoveKeyboard(ctx context.Context, text string) error {
	msg := tgbotapi.NewMessage(r.chatID, text)
	msg.ReplyMarkup = tgbotapi.NewRemoveKeyboard(false)
	_, err := r.bot.Send(msg)
	return err
}

func (r *responder) SendDocument(ctx context.Context, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(r.chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = truncateCaption(caption)
	_, err := r.bot.Send(doc)
	return err
}

func (r *responder) SendAudio(ctx context.Context, name string, data []byte, caption string) error {
	audio := tgbotapi.NewAudio(r.chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	audio.Caption = truncateCaption(caption)
	_, err := r.bot.Send(audio)
	return err
}

// Telegram rejects captions longer than 1024 characters.
const maxCaptionRunes = 1024

func truncateCaption(caption string) string {
	runes := []rune(caption)
	if len(runes) <= maxCaptionRunes {
		return caption
	}
	return strings.TrimSpace(string(runes[:maxCaptionRunes-3])) + "..."
}
