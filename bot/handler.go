// Package bot is the conversation layer. Each inbound message goes
// through intent classification into the matching flow: save, search,
// stats, insights, reminder list or greeting.
package bot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/quailyquaily/mira/brain"
	"github.com/quailyquaily/mira/compose"
	"github.com/quailyquaily/mira/extract"
	"github.com/quailyquaily/mira/intent"
	"github.com/quailyquaily/mira/remind"
	"github.com/quailyquaily/mira/search"
	"github.com/quailyquaily/mira/store"
	"github.com/quailyquaily/mira/telegram"
	"github.com/quailyquaily/mira/temporal"
	"github.com/quailyquaily/mira/transcribe"
	"github.com/quailyquaily/mira/version"
)

const startGreeting = "🧠 Второй мозг готов!\n\n" +
	"Команды:\n" +
	"• Любое голосовое сообщение → автоматически сохраню в память\n" +
	"• Скажи 'расскажи' или 'tell me' → покажу твои записи\n" +
	"• Скажи 'статистика' или 'stats' → покажу статистику\n" +
	"• Просто говори - я все запомню!"

const (
	msgTranscribeDown    = "🎤 Сервис распознавания речи сейчас недоступен. Попробуй позже!"
	msgTranscribeBusy    = "🎤 Слишком много голосовых сразу. Подожди минутку и попробуй снова!"
	msgTranscribeFailed  = "❌ Ошибка распознавания речи"
	msgSaveFailed        = "😔 Не получилось сохранить. Попробуй еще раз!"
	msgGreetingReply     = "Привет! Я Мира, твой второй мозг 🧠 Расскажи мне что-нибудь, и я запомню!"
	msgNoReminders       = "⏰ Активных напоминаний нет."
)

// Sender delivers outbound text. telegram.Client satisfies it.
type Sender interface {
	SendMessage(ctx context.Context, chatID int64, text string) error
}

// Downloader fetches voice payloads. telegram.Client satisfies it.
type Downloader interface {
	DownloadFile(ctx context.Context, fileID string) ([]byte, error)
}

// Handler wires every engine into the conversation. All fields are set
// once at startup.
type Handler struct {
	Store       *store.Store
	Sender      Sender
	Downloader  Downloader
	Transcriber transcribe.Client
	Intent      *intent.Router
	Extractor   *extract.Engine
	Parser      *temporal.Parser
	Resolver    *temporal.Resolver
	Categorizer *brain.Categorizer
	Responder   *brain.Responder
	Search      *search.Engine
	Composer    *compose.Composer
	Scheduler   *remind.Scheduler
	Logger      *slog.Logger
	Now         func() time.Time

	// AudioDir keeps raw voice files; empty disables archiving.
	AudioDir string
}

// Handle processes one message. It never surfaces an internal error to
// the user without a readable message.
func (h *Handler) Handle(ctx context.Context, msg *telegram.Message) {
	chatID := msg.Chat.ID
	userID := chatID
	if msg.From != nil {
		userID = msg.From.ID
	}

	h.announceReleases(ctx, userID, chatID)

	if strings.TrimSpace(msg.Text) == "/start" {
		h.send(ctx, chatID, startGreeting)
		return
	}

	text := msg.Text
	sourceType := "text"
	audioPath := ""
	if msg.Voice != nil {
		sourceType = "voice"
		h.send(ctx, chatID, h.Composer.WaitingMessage())
		var ok bool
		text, audioPath, ok = h.transcribeVoice(ctx, chatID, userID, msg.Voice.FileID)
		if !ok {
			return
		}
	}
	if strings.TrimSpace(text) == "" {
		return
	}

	c := h.Intent.Classify(ctx, text)
	h.Logger.Info("message routed", "user_id", userID, "intent", string(c.Kind), "source", sourceType)

	switch c.Kind {
	case intent.Greeting:
		h.send(ctx, chatID, msgGreetingReply)
	case intent.SearchInfo:
		h.handleSearch(ctx, userID, chatID, text)
	case intent.ShowStats:
		h.handleStats(ctx, userID, chatID)
	case intent.ShowInsights:
		h.handleInsights(ctx, userID, chatID)
	case intent.ShowReminders:
		h.handleReminderList(ctx, userID, chatID)
	default:
		h.handleSave(ctx, userID, chatID, text, sourceType, audioPath)
	}
}

func (h *Handler) send(ctx context.Context, chatID int64, text string) {
	if err := h.Sender.SendMessage(ctx, chatID, text); err != nil {
		h.Logger.Error("send failed", "error", err, "chat_id", chatID)
	}
}

func (h *Handler) announceReleases(ctx context.Context, userID, chatID int64) {
	lastSeen, err := h.Store.LastSeenVersion(ctx, userID)
	if err != nil {
		h.Logger.Error("last seen version lookup failed", "error", err, "user_id", userID)
		return
	}
	pending := version.Pending(lastSeen)
	if len(pending) == 0 {
		return
	}
	for _, r := range pending {
		h.send(ctx, chatID, r.Message)
	}
	if err := h.Store.SetLastSeenVersion(ctx, userID, version.Current); err != nil {
		h.Logger.Error("version marker update failed", "error", err, "user_id", userID)
	}
}

func (h *Handler) transcribeVoice(ctx context.Context, chatID, userID int64, fileID string) (string, string, bool) {
	audio, err := h.Downloader.DownloadFile(ctx, fileID)
	if err != nil {
		h.Logger.Error("voice download failed", "error", err, "chat_id", chatID)
		h.send(ctx, chatID, msgTranscribeFailed)
		return "", "", false
	}
	audioPath := h.storeAudio(userID, audio)

	text, err := h.Transcriber.Transcribe(ctx, audio, fileID+".oga")
	if err != nil {
		h.Logger.Error("transcription failed", "error", err, "chat_id", chatID)
		switch {
		case errors.Is(err, transcribe.ErrConnection), errors.Is(err, transcribe.ErrService):
			h.send(ctx, chatID, msgTranscribeDown)
		case errors.Is(err, transcribe.ErrRateLimited):
			h.send(ctx, chatID, msgTranscribeBusy)
		default:
			h.send(ctx, chatID, msgTranscribeFailed)
		}
		return "", "", false
	}
	return text, audioPath, true
}

// storeAudio keeps the raw voice file for the entry's audio_file_path.
// Disabled when AudioDir is empty; failures only cost the archive copy.
func (h *Handler) storeAudio(userID int64, audio []byte) string {
	if h.AudioDir == "" {
		return ""
	}
	dir := filepath.Join(h.AudioDir, strconv.FormatInt(userID, 10))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		h.Logger.Error("audio dir create failed", "error", err, "dir", dir)
		return ""
	}
	path := filepath.Join(dir, uuid.NewString()+".oga")
	if err := os.WriteFile(path, audio, 0o644); err != nil {
		h.Logger.Error("audio write failed", "error", err, "path", path)
		return ""
	}
	return path
}

func (h *Handler) handleSave(ctx context.Context, userID, chatID int64, text, sourceType, audioPath string) {
	now := h.Now()
	parsed := h.Parser.ParseText(text, now)
	extracted := h.Extractor.Categorize(text)

	var cat *brain.Categorization
	if h.Categorizer != nil {
		c := h.Categorizer.Categorize(ctx, text)
		if !c.Fallback {
			cat = &c
		}
	}

	meta := map[string]any{}
	if parsed.DateString != "" {
		meta["parsed_date"] = parsed.DateString
		meta["confidence"] = parsed.Confidence
	}
	if parsed.TimeOfDay != "" {
		meta["time_of_day"] = parsed.TimeOfDay
	}
	if extracted.Category != extract.CategoryGeneral {
		meta["category"] = extracted.Category
	}
	if extracted.TemporalInfo != nil {
		meta["temporal_kind"] = extracted.TemporalInfo.Kind
		meta["temporal_match"] = extracted.TemporalInfo.Match
	}
	if cat != nil && cat.TemporalInfo != nil {
		meta["temporal_type"] = cat.TemporalInfo.Type
		meta["temporal_value"] = cat.TemporalInfo.Value
	}

	entry, err := h.Store.AddEntry(ctx, userID, text, store.EntryOptions{
		ProcessedText: parsed.ProcessedText,
		SourceType:    sourceType,
		AudioFilePath: audioPath,
		Metadata:      meta,
	})
	if err != nil {
		h.Logger.Error("entry insert failed", "error", err, "user_id", userID)
		h.send(ctx, chatID, msgSaveFailed)
		return
	}

	entities, tags, reminders := mergeKnowledge(cat, extracted)
	h.linkKnowledge(ctx, userID, entry.ID, entities, tags)

	ack := fmt.Sprintf("🧠 Запомнил! (запись #%d)", entry.ID)
	if line := h.createReminders(ctx, userID, entry.ID, reminders, now); line != "" {
		ack += "\n" + line
	}
	h.send(ctx, chatID, ack)
}

type knownEntity struct {
	name       string
	entityType string
	confidence float64
}

// reminderSpec is one reminder to create: display text plus the phrase the
// resolver runs on, which doubles as the trigger condition when no
// concrete time comes out.
type reminderSpec struct {
	text   string
	phrase string
}

// mergeKnowledge combines rule extraction with model categorization. The
// model's richer result supersedes the rules: it goes in first and wins
// name collisions, with rule matches it missed appended after. cat is nil
// when no model is configured or its reply was unusable.
func mergeKnowledge(cat *brain.Categorization, extracted extract.Result) ([]knownEntity, []string, []reminderSpec) {
	var (
		entities  []knownEntity
		tags      []string
		reminders []reminderSpec
	)
	seen := make(map[string]bool)
	tagSet := make(map[string]bool)
	remSeen := make(map[string]bool)

	addEntity := func(name, typ string, conf float64) {
		if name == "" || seen[name] {
			return
		}
		seen[name] = true
		entities = append(entities, knownEntity{name: name, entityType: typ, confidence: conf})
	}
	addTag := func(t string) {
		if t == "" || tagSet[t] {
			return
		}
		tagSet[t] = true
		tags = append(tags, t)
	}
	addReminder := func(text, phrase string) {
		key := strings.ToLower(strings.TrimSpace(text))
		if key == "" || remSeen[key] {
			return
		}
		remSeen[key] = true
		reminders = append(reminders, reminderSpec{text: text, phrase: phrase})
	}

	if cat != nil {
		for _, e := range cat.Entities {
			addEntity(e.Name, e.Type, e.Confidence)
		}
		for _, t := range cat.Tags {
			addTag(t)
		}
		for _, r := range cat.Reminders {
			addReminder(r.Text, r.Trigger)
		}
	}
	for _, e := range extracted.Entities {
		addEntity(e.Name, e.Type, e.Confidence)
	}
	for _, t := range extracted.Tags {
		addTag(t)
	}
	for _, r := range extracted.Reminders {
		addReminder(r.Text, r.OriginalText)
	}
	return entities, tags, reminders
}

func (h *Handler) linkKnowledge(ctx context.Context, userID, entryID int64, entities []knownEntity, tags []string) {
	for _, e := range entities {
		row, err := h.Store.UpsertEntity(ctx, userID, e.name, e.entityType, nil)
		if err != nil {
			h.Logger.Error("entity upsert failed", "error", err, "name", e.name)
			continue
		}
		if err := h.Store.LinkEntryEntity(ctx, entryID, row.ID, "mention", e.confidence); err != nil {
			h.Logger.Error("entity link failed", "error", err, "entity_id", row.ID)
		}
	}
	for _, t := range tags {
		row, err := h.Store.UpsertTag(ctx, userID, t)
		if err != nil {
			h.Logger.Error("tag upsert failed", "error", err, "name", t)
			continue
		}
		if err := h.Store.LinkEntryTag(ctx, entryID, row.ID); err != nil {
			h.Logger.Error("tag link failed", "error", err, "tag_id", row.ID)
		}
	}
}

// createReminders resolves trigger times for the collected specs. A
// resolution at or before now means no concrete time was found; the
// reminder is stored with its phrase as a trigger condition instead.
func (h *Handler) createReminders(ctx context.Context, userID, entryID int64, specs []reminderSpec, now time.Time) string {
	var lines []string
	for _, spec := range specs {
		when := h.Resolver.Resolve(spec.phrase, now)
		if when.After(now) {
			rem, err := h.Store.AddReminder(ctx, userID, spec.text, &when, "", &entryID)
			if err != nil {
				h.Logger.Error("reminder insert failed", "error", err, "user_id", userID)
				continue
			}
			h.Scheduler.Schedule(*rem)
			lines = append(lines, fmt.Sprintf("⏰ Напомню %s", when.Format("02.01.2006 в 15:04")))
		} else {
			if _, err := h.Store.AddReminder(ctx, userID, spec.text, nil, spec.phrase, &entryID); err != nil {
				h.Logger.Error("reminder insert failed", "error", err, "user_id", userID)
				continue
			}
			lines = append(lines, "⏰ Напоминание сохранено, но время я не распознала")
		}
	}
	return strings.Join(lines, "\n")
}

func (h *Handler) handleSearch(ctx context.Context, userID, chatID int64, query string) {
	h.send(ctx, chatID, h.Composer.WaitingMessage())

	bundle := h.Search.Comprehensive(ctx, userID, query)
	if len(bundle.Entities) == 0 && len(bundle.Entries) == 0 {
		h.send(ctx, chatID, h.Composer.NoDataResponse(query))
		return
	}

	digest := h.Composer.BuildDigest(query, bundle, h.Now())
	reply := h.Responder.Generate(ctx, query, digest)
	if reply.Fallback {
		h.send(ctx, chatID, h.Composer.DataResponse(query, bundle))
		return
	}
	h.send(ctx, chatID, compose.FormatFinal(reply))
}

func (h *Handler) handleStats(ctx context.Context, userID, chatID int64) {
	stats, err := h.Store.UserStats(ctx, userID)
	if err != nil {
		h.Logger.Error("stats lookup failed", "error", err, "user_id", userID)
		h.send(ctx, chatID, "📊 Не могу получить статистику сейчас. Попробуй позже!")
		return
	}
	recent, err := h.Store.RecentEntries(ctx, userID, 7, 3)
	if err != nil {
		h.Logger.Error("recent entries lookup failed", "error", err, "user_id", userID)
	}
	h.send(ctx, chatID, compose.StatsSummary(stats, recent))
}

func (h *Handler) handleInsights(ctx context.Context, userID, chatID int64) {
	counts, err := h.Store.EntityTypeCounts(ctx, userID)
	if err != nil {
		h.Logger.Error("insight counts failed", "error", err, "user_id", userID)
		h.send(ctx, chatID, "🔍 Не могу получить инсайты сейчас. Попробуй позже!")
		return
	}
	tops, err := h.Store.TopEntities(ctx, userID, 5)
	if err != nil {
		h.Logger.Error("top entity lookup failed", "error", err, "user_id", userID)
	}
	h.send(ctx, chatID, compose.QuickInsights(counts, tops))
}

func (h *Handler) handleReminderList(ctx context.Context, userID, chatID int64) {
	rows, err := h.Store.ActiveReminders(ctx, userID)
	if err != nil {
		h.Logger.Error("reminder list failed", "error", err, "user_id", userID)
		h.send(ctx, chatID, compose.ErrorResponse)
		return
	}
	if len(rows) == 0 {
		h.send(ctx, chatID, msgNoReminders)
		return
	}

	parts := []string{"⏰ Твои напоминания:"}
	for i, r := range rows {
		line := fmt.Sprintf("%d. %s", i+1, r.Text)
		if r.TriggerAt != nil {
			line += " — " + time.UnixMilli(*r.TriggerAt).In(h.location()).Format("02.01.2006 15:04")
		} else if r.TriggerCondition != nil {
			line += " — " + *r.TriggerCondition
		}
		parts = append(parts, line)
	}
	h.send(ctx, chatID, strings.Join(parts, "\n"))
}

func (h *Handler) location() *time.Location {
	return h.Now().Location()
}
