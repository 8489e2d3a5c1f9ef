package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/SaadNasir-Drago/Zolo/internal/config"
	"github.com/SaadNasir-Drago/Zolo/internal/email"
	"github.com/SaadNasir-Drago/Zolo/internal/models"
	"github.com/SaadNasir-Drago/Zolo/internal/observability/metrics"
	"github.com/SaadNasir-Drago/Zolo/internal/services"
	"github.com/SaadNasir-Drago/Zolo/internal/storage"
)

// Task types.
const (
	TypeEmailDelivery = "email:deliver"
	TypeImageProcess  = "image:process"
)

// Queues.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

const defaultFromAddress = "noreply@zolo.example.com"

// TemplateSource loads email templates.
type TemplateSource interface {
	GetTemplate(ctx context.Context, templateID, locale string) (*models.EmailTemplate, error)
}

// InterestMarker flags a property interest as delivered.
type InterestMarker interface {
	MarkInterestSent(ctx context.Context, interestID primitive.ObjectID) error
}

// ImageAttacher appends a processed image to a property.
type ImageAttacher interface {
	AddImageToProperty(ctx context.Context, propertyID primitive.ObjectID, imageURL string) error
}

func redisOpt(rdb *redis.Client) asynq.RedisClientOpt {
	opts := rdb.Options()
	return asynq.RedisClientOpt{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}
}

// NewClient returns an asynq client sharing rdb's connection settings.
func NewClient(rdb *redis.Client) *asynq.Client {
	return asynq.NewClient(redisOpt(rdb))
}

// EmailTaskPayload is the body of an email:deliver task.
type EmailTaskPayload struct {
	To         string                 `json:"to"`
	ReplyTo    string                 `json:"reply_to,omitempty"`
	TemplateID string                 `json:"template_id"`
	Locale     string                 `json:"locale,omitempty"`
	Data       map[string]interface{} `json:"data"`
	InterestID string                 `json:"interest_id,omitempty"` // Marked sent after delivery
}

// ImageTaskPayload is the body of an image:process task.
type ImageTaskPayload struct {
	S3Key      string `json:"s3_key"`
	PropertyID string `json:"property_id"`
}

// NewEmailDeliveryTask builds an email:deliver task.
func NewEmailDeliveryTask(payload EmailTaskPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal email task payload: %w", err)
	}
	return asynq.NewTask(TypeEmailDelivery, b, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// NewImageProcessTask builds an image:process task.
func NewImageProcessTask(payload ImageTaskPayload) (*asynq.Task, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image task payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, b, asynq.Queue(QueueImages), asynq.MaxRetry(3)), nil
}

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg         *config.Config
	emailSender email.Sender
	storage     storage.IS3Storage
	templates   TemplateSource
	interests   InterestMarker
	images      ImageAttacher
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	templates TemplateSource,
	interests InterestMarker,
	images ImageAttacher,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:         cfg,
		emailSender: emailSender,
		storage:     storageService,
		templates:   templates,
		interests:   interests,
		images:      images,
	}
}

// observe records every handled task in the metrics registry.
func observe(next asynq.Handler) asynq.Handler {
	return asynq.HandlerFunc(func(ctx context.Context, t *asynq.Task) error {
		err := next.ProcessTask(ctx, t)
		metrics.ObserveTask(t.Type(), err)
		return err
	})
}

// NewServeMux registers the handlers a worker of the given kind runs.
func NewServeMux(processor *TaskProcessor, isImageWorker, isBgWorker bool) *asynq.ServeMux {
	mux := asynq.NewServeMux()
	mux.Use(observe)
	if isBgWorker {
		mux.HandleFunc(TypeEmailDelivery, processor.HandleEmailDeliveryTask)
	}
	if isImageWorker {
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
	}
	return mux
}

// SetupServer configures an asynq server and its mux. It returns nil when
// neither worker kind is requested.
func SetupServer(rdb *redis.Client, processor *TaskProcessor, isImageWorker, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		return nil, nil
	}

	queues := map[string]int{}
	if isBgWorker {
		queues[QueueDefault] = 3
	}
	if isImageWorker {
		queues[QueueImages] = 5
	}

	srv := asynq.NewServer(redisOpt(rdb), asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("[Asynq Error] Task Type: %s, Payload: %s, Error: %v", task.Type(), string(task.Payload()), err)
		}),
	})
	return srv, NewServeMux(processor, isImageWorker, isBgWorker)
}

// headerSafe strips characters that would let a value break out of its header line.
func headerSafe(s string) string {
	return strings.NewReplacer("\r", "", "\n", " ").Replace(s)
}

// renderPlaceholders substitutes {{.key}} placeholders with values from data.
func renderPlaceholders(text string, data map[string]interface{}) string {
	for key, val := range data {
		text = strings.ReplaceAll(text, fmt.Sprintf("{{.%s}}", key), fmt.Sprintf("%v", val))
	}
	return text
}

// buildMessage assembles a plain-text RFC 5322 message.
func buildMessage(from, to, replyTo, subject, body string, now time.Time) []byte {
	var sb strings.Builder
	sb.WriteString("To: " + headerSafe(to) + "\r\n")
	sb.WriteString("From: " + headerSafe(from) + "\r\n")
	if replyTo != "" {
		sb.WriteString("Reply-To: " + headerSafe(replyTo) + "\r\n")
	}
	sb.WriteString("Subject: " + headerSafe(subject) + "\r\n")
	sb.WriteString("Date: " + now.Format(time.RFC1123Z) + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/plain; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(body)
	sb.WriteString("\r\n")
	return []byte(sb.String())
}

// HandleEmailDeliveryTask renders a template and sends it.
func (p *TaskProcessor) HandleEmailDeliveryTask(ctx context.Context, t *asynq.Task) error {
	var payload EmailTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal email task payload: %v: %w", err, asynq.SkipRetry)
	}
	if payload.To == "" {
		return fmt.Errorf("email task has no recipient: %w", asynq.SkipRetry)
	}

	locale := payload.Locale
	if locale == "" {
		locale = p.cfg.DefaultLocale
	}
	if locale == "" {
		locale = "en-US"
	}

	tmpl, err := p.templates.GetTemplate(ctx, payload.TemplateID, locale)
	if err != nil {
		log.Printf("Error getting email template %s/%s: %v", payload.TemplateID, locale, err)
		return fmt.Errorf("email template %s not found: %w", payload.TemplateID, asynq.SkipRetry)
	}

	subject := renderPlaceholders(tmpl.Subject, payload.Data)
	body := renderPlaceholders(tmpl.Body, payload.Data)

	from := p.cfg.SmtpFromAddress
	if from == "" {
		from = defaultFromAddress
	}

	raw := buildMessage(from, payload.To, payload.ReplyTo, subject, body, time.Now())
	if err := p.emailSender.Send(ctx, []string{payload.To}, subject, raw); err != nil {
		log.Printf("Email to %s failed: %v", payload.To, err)
		return err
	}

	if payload.InterestID != "" && p.interests != nil {
		interestID, err := primitive.ObjectIDFromHex(payload.InterestID)
		if err != nil {
			log.Printf("Invalid interest ID %q in email task; mail was sent", payload.InterestID)
			return nil
		}
		// A failure here must not resend the mail.
		if err := p.interests.MarkInterestSent(ctx, interestID); err != nil {
			log.Printf("Failed to mark interest %s sent: %v", payload.InterestID, err)
		}
	}

	log.Printf("Email task processed: To=%s, Template=%s", payload.To, payload.TemplateID)
	return nil
}

// HandleImageProcessTask bounds an uploaded image's dimensions and attaches it to its property.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}

	propertyID, err := primitive.ObjectIDFromHex(payload.PropertyID)
	if err != nil {
		return fmt.Errorf("invalid property ID %q in payload: %w", payload.PropertyID, asynq.SkipRetry)
	}

	imgData, contentType, err := p.storage.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			return fmt.Errorf("s3 object %s not found: %w", payload.S3Key, asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(imgData)) > maxSizeBytes {
		return fmt.Errorf("image %s exceeds max size (%d > %d bytes): %w", payload.S3Key, len(imgData), maxSizeBytes, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(imgData))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image %s: %w", payload.S3Key, asynq.SkipRetry)
	}

	maxDim := uint(p.cfg.ImageMaxDimension)
	if maxDim > 0 && (uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim) {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		log.Printf("Resized image %s (%s) from %dx%d to %dx%d", payload.S3Key, format,
			img.Bounds().Dx(), img.Bounds().Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())

		if err := p.storage.PutObject(ctx, payload.S3Key, buf.Bytes(), "image/jpeg"); err != nil {
			return err
		}
	} else if contentType == "" {
		// Untyped uploads are rewritten so browsers render them inline.
		if err := p.storage.PutObject(ctx, payload.S3Key, imgData, "image/"+format); err != nil {
			return err
		}
	}

	url := p.storage.PublicURL(payload.S3Key)
	if err := p.images.AddImageToProperty(ctx, propertyID, url); err != nil {
		if errors.Is(err, services.ErrPropertyNotFound) {
			return fmt.Errorf("property %s gone: %w", payload.PropertyID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to attach image to property: %w", err)
	}

	log.Printf("Image task processed: Key=%s, PropertyID=%s", payload.S3Key, payload.PropertyID)
	return nil
}
