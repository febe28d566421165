package conversation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"vocabtextdev/generator"
	"vocabtextdev/logger"
	"vocabtextdev/presentation"
	"vocabtextdev/session"
	"vocabtextdev/textutil"
)

// ErrParseFailure means a column reply was not a number.
var ErrParseFailure = errors.New("column is not a number")

type EventKind int

const (
	EventText EventKind = iota
	EventCommand
	EventDocument
)

// Event is one inbound message from a user.
type Event struct {
	UserID int64
	Kind   EventKind
	// Text is the message text, or the command name for EventCommand.
	Text string
	// Document holds the uploaded file, nil when it could not be downloaded.
	Document []byte
}

// Responder delivers outbound actions to the user who sent the event.
type Responder interface {
	Reply(ctx context.Context, text string) error
	ReplyWithKeyboard(ctx context.Context, text string, rows [][]string) error
	ReplyRemoveKeyboard(ctx context.Context, text string) error
	SendDocument(ctx context.Context, name string, data []byte, caption string) error
	SendAudio(ctx context.Context, name string, data []byte, caption string) error
}

type ContentGenerator interface {
	Generate(ctx context.Context, req generator.Request) (generator.Result, error)
}

type AudioNarrator interface {
	Synthesize(ctx context.Context, text string, lang textutil.Language, level textutil.Level) ([]byte, error)
}

// GenerationRecord describes a completed passage for the history log.
type GenerationRecord struct {
	UserID    int64
	Language  textutil.Language
	Level     textutil.Level
	Topic     string
	WordCount int
	WordsUsed int
	Narrated  bool
}

type Recorder interface {
	RecordGeneration(ctx context.Context, rec GenerationRecord) error
}

type MachineConnectProps struct {
	Logger    *logger.LogMiddleware
	Store     *session.Store
	Detector  textutil.Detector
	Generator ContentGenerator
	Narrator  AudioNarrator
	// Recorder is optional.
	Recorder          Recorder
	AffirmativeTokens []string
}

// Machine drives each user's conversation from vocabulary input to the finished passage.
type Machine struct {
	logger      *logger.LogMiddleware
	store       *session.Store
	detector    textutil.Detector
	generator   ContentGenerator
	narrator    AudioNarrator
	recorder    Recorder
	affirmative map[string]struct{}
}

func New(args MachineConnectProps) *Machine {
	affirmative := make(map[string]struct{}, len(args.AffirmativeTokens))
	for _, t := range args.AffirmativeTokens {
		affirmative[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	return &Machine{
		logger:      args.Logger,
		store:       args.Store,
		detector:    args.Detector,
		generator:   args.Generator,
		narrator:    args.Narrator,
		recorder:    args.Recorder,
		affirmative: affirmative,
	}
}

// Handle processes one event. Events from the same user never run concurrently.
func (m *Machine) Handle(ctx context.Context, ev Event, out Responder) {
	tracer := otel.Tracer("conversation/Handle")
	ctx, span := tracer.Start(ctx, "Handle")
	defer span.End()

	span.SetAttributes(attribute.Int64("user.id", ev.UserID), attribute.Int("event.kind", int(ev.Kind)))

	unlock := m.store.Lock(ev.UserID)
	defer unlock()

	switch ev.Kind {
	case EventCommand:
		m.reply(ctx, out, welcomeMessage)
	case EventDocument:
		m.handleDocument(ctx, ev, out)
	default:
		m.handleText(ctx, ev.UserID, strings.TrimSpace(ev.Text), out)
	}
}

// Phase reports the user's current phase, Idle when there is no session.
func (m *Machine) Phase(userID int64) session.Phase {
	if sess, ok := m.store.Get(userID); ok {
		return sess.Phase
	}
	return session.Idle
}

func (m *Machine) handleDocument(ctx context.Context, ev Event, out Responder) {
	raw := bytes.TrimPrefix(ev.Document, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(raw)) == 0 || !utf8.Valid(raw) {
		m.logger.Logger(ctx).Warn("[Conversation] Unreadable document",
			zap.Int64("user_id", ev.UserID),
			zap.Int("size", len(ev.Document)),
		)
		m.reply(ctx, out, unreadableFileMessage)
		return
	}

	sess := &session.Session{}
	sess.StartUpload(string(raw))
	m.store.Save(ev.UserID, sess)

	m.logger.Logger(ctx).Info("[Conversation] Document received", zap.Int64("user_id", ev.UserID), zap.Int("size", len(raw)))
	m.reply(ctx, out, columnPromptMessage)
}

func (m *Machine) handleText(ctx context.Context, userID int64, text string, out Responder) {
	sess, ok := m.store.Get(userID)
	if !ok {
		sess = &session.Session{Phase: session.Idle}
	}

	switch sess.Phase {
	case session.AwaitingColumn:
		m.handleColumn(ctx, userID, sess, text, out)
		return
	case session.AwaitingConfirmation:
		m.handleConfirmation(ctx, userID, sess, text, out)
		return
	case session.AwaitingLevel:
		if level, ok := textutil.ParseLevel(text); ok {
			sess.SetLevel(level)
			m.store.Save(userID, sess)
			m.replyRemoveKeyboard(ctx, out, levelSelectedMessage(level))
			return
		}
	case session.AwaitingTopic:
		if text != "" {
			m.handleTopic(ctx, userID, sess, text, out)
			return
		}
	case session.Idle:
		if strings.Contains(text, "\n") {
			m.handlePastedList(ctx, userID, sess, text, out)
			return
		}
	}

	m.reply(ctx, out, defaultMessage)
}

func parseColumnNumber(text string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrParseFailure, text)
	}
	return n, nil
}

func (m *Machine) handleColumn(ctx context.Context, userID int64, sess *session.Session, text string, out Responder) {
	var words []string

	if strings.EqualFold(text, "anki") {
		words = textutil.ParseAnkiExport(sess.RawText)
	} else {
		column, err := parseColumnNumber(text)
		if err != nil {
			m.logger.Logger(ctx).Debug("[Conversation] Invalid column reply", zap.Int64("user_id", userID), zap.Error(err))
			m.reply(ctx, out, invalidColumnMessage)
			return
		}

		words, err = textutil.ParseColumn(sess.RawText, column)
		if err != nil {
			m.logger.Logger(ctx).Debug("[Conversation] Empty column", zap.Int64("user_id", userID), zap.Int("column", column), zap.Error(err))
			m.reply(ctx, out, noWordsInColumnMessage)
			return
		}
	}

	if !m.setVocabulary(ctx, sess, words) {
		m.reply(ctx, out, noWordsInColumnMessage)
		return
	}
	m.store.Save(userID, sess)
	m.reply(ctx, out, previewMessage(sess.Words, "Is this correct? (yes/no)"))
}

func (m *Machine) handlePastedList(ctx context.Context, userID int64, sess *session.Session, text string, out Responder) {
	if !m.setVocabulary(ctx, sess, textutil.SplitLines(text)) {
		m.reply(ctx, out, noWordsInListMessage)
		return
	}
	m.store.Save(userID, sess)
	m.reply(ctx, out, previewMessage(sess.Words, "Is this your vocabulary list? (yes/no)"))
}

// setVocabulary detects the language and filters words. It reports false, leaving the session
// untouched, when nothing survives filtering.
func (m *Machine) setVocabulary(ctx context.Context, sess *session.Session, words []string) bool {
	if len(words) == 0 {
		return false
	}
	lang := textutil.DetectLanguage(ctx, m.detector, words)
	filtered := textutil.FilterWords(words, lang)

	m.logger.Logger(ctx).Info("[Conversation] Vocabulary parsed",
		zap.String("language", string(lang)),
		zap.Int("words", len(words)),
		zap.Int("filtered", len(filtered)),
	)
	if len(filtered) == 0 {
		return false
	}

	sess.SetVocabulary(filtered, lang)
	return true
}

func (m *Machine) isAffirmative(text string) bool {
	_, ok := m.affirmative[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

func (m *Machine) handleConfirmation(ctx context.Context, userID int64, sess *session.Session, text string, out Responder) {
	if !m.isAffirmative(text) {
		m.store.Delete(userID)
		m.reply(ctx, out, startOverMessage)
		return
	}

	sess.Confirm()
	m.store.Save(userID, sess)
	m.replyWithKeyboard(ctx, out, selectLevelMessage, levelKeyboard)
}

func (m *Machine) handleTopic(ctx context.Context, userID int64, sess *session.Session, topic string, out Responder) {
	tracer := otel.Tracer("conversation/handleTopic")
	ctx, span := tracer.Start(ctx, "handleTopic")
	defer span.End()

	// The session ends here whatever the outcome.
	defer m.store.Delete(userID)

	sess.Topic = topic
	log := m.logger.Logger(ctx).With(
		zap.Int64("user_id", userID),
		zap.String("level", string(sess.Level)),
		zap.String("language", string(sess.Language)),
	)
	span.SetAttributes(attribute.String("level", string(sess.Level)), attribute.String("language", string(sess.Language)))

	m.reply(ctx, out, creatingMessage)

	result, err := m.generator.Generate(ctx, generator.Request{
		Words:    sess.Words,
		Topic:    sess.Topic,
		Level:    sess.Level,
		Language: sess.Language,
	})
	if err != nil {
		span.RecordError(err)
		log.Error("[Conversation] Generation failed",
			zap.Error(err),
			zap.Bool("parse_error", errors.Is(err, generator.ErrGenerationParse)),
		)
		m.reply(ctx, out, apologyMessage)
		return
	}

	doc, err := presentation.RenderDocument(result.Text, result.WordsUsed)
	if err != nil {
		span.RecordError(err)
		log.Error("[Conversation] Could not render document", zap.Error(err))
		m.reply(ctx, out, apologyMessage)
		return
	}
	if err := out.SendDocument(ctx, presentation.DocumentName, doc, presentation.UsedWordsCaption(result.WordsUsed)); err != nil {
		log.Error("[Conversation] Failed to send document", zap.Error(err))
	}

	narrated := false
	if _, ok := presentation.SpeakingRate(sess.Level); ok {
		narrated = m.sendNarration(ctx, log, sess, result.Text, out)
	}

	m.record(ctx, log, GenerationRecord{
		UserID:    userID,
		Language:  sess.Language,
		Level:     sess.Level,
		Topic:     sess.Topic,
		WordCount: len(sess.Words),
		WordsUsed: len(result.WordsUsed),
		Narrated:  narrated,
	})

	log.Info("[Conversation] Passage delivered", zap.Int("words_used", len(result.WordsUsed)), zap.Bool("narrated", narrated))
	m.reply(ctx, out, doneMessage)
}

func (m *Machine) sendNarration(ctx context.Context, log *zap.Logger, sess *session.Session, text string, out Responder) bool {
	m.reply(ctx, out, generatingAudioMessage)

	audio, err := m.narrator.Synthesize(ctx, text, sess.Language, sess.Level)
	if err != nil {
		log.Error("[Conversation] Narration failed", zap.Error(err))
		m.reply(ctx, out, audioFailedMessage)
		return false
	}

	if err := out.SendAudio(ctx, presentation.AudioName, audio, presentation.AudioCaption(sess.Level)); err != nil {
		log.Error("[Conversation] Failed to send audio", zap.Error(err))
		return false
	}
	return true
}

func (m *Machine) record(ctx context.Context, log *zap.Logger, rec GenerationRecord) {
	if m.recorder == nil {
		return
	}
	if err := m.recorder.RecordGeneration(ctx, rec); err != nil {
		log.Warn("[Conversation] Could not record generation", zap.Error(err))
	}
}

func (m *Machine) reply(ctx context.Context, out Responder, text string) {
	if err := out.Reply(ctx, text); err != nil {
		m.logger.Logger(ctx).Error("[Conversation] Failed to send reply", zap.Error(err))
	}
}

func (m *Machine) replyWithKeyboard(ctx context.Context, out Responder, text string, rows [][]string) {
	if err := out.ReplyWithKeyboard(ctx, text, rows); err != nil {
		m.logger.Logger(ctx).Error("[Conversation] Failed to send keyboard", zap.Error(err))
	}
}

func (m *Machine) replyRemoveKeyboard(ctx context.Context, out Responder, text string) {
	if err := out.ReplyRemoveKeyboard(ctx, text); err != nil {
		m.logger.Logger(ctx).Error("[Conversation] Failed to send reply", zap.Error(err))
	}
}
