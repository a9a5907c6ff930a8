package notifiers

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Adda-Baaj/note-syndicator/internal/configfile"
)

const (
	// Supported notifier types.
	TypeQueue = "queue"
	TypeHTTP  = "http"

	// Supported queue providers.
	QueueProviderAWSSQS = "aws-sqs"
	QueueProviderAWSSNS = "aws-sns"
	QueueProviderGCP    = "gcp"

	httpDefaultMethod         = http.MethodPost
	httpDefaultTimeoutSeconds = 5
)

type notifiersFile struct {
	Notifiers []NotifierConfig `json:"notifiers" yaml:"notifiers"`
}

// NotifierConfig is one run report sink declared in the notifiers file.
type NotifierConfig struct {
	ID      string               `json:"id" yaml:"id"`
	Type    string               `json:"type" yaml:"type"`
	Enabled *bool                `json:"enabled" yaml:"enabled"`
	Queue   *QueueNotifierConfig `json:"queue" yaml:"queue"`
	HTTP    *HTTPNotifierConfig  `json:"http" yaml:"http"`
}

// QueueNotifierConfig selects a cloud queue provider. Provider may be left
// out when exactly one provider block is present.
type QueueNotifierConfig struct {
	Provider string           `json:"provider" yaml:"provider"`
	SQS      *AWSSQSConfig    `json:"sqs" yaml:"sqs"`
	SNS      *AWSSNSConfig    `json:"sns" yaml:"sns"`
	GCP      *GCPPubSubConfig `json:"gcp" yaml:"gcp"`
}

// AWSAccess is the region and optional static key pair shared by the AWS
// senders. With no keys the default AWS credential chain is used.
type AWSAccess struct {
	Region          string `json:"region" yaml:"region"`
	AccessKeyID     string `json:"access_key_id" yaml:"access_key_id"`
	SecretAccessKey string `json:"secret_access_key" yaml:"secret_access_key"`
}

// AWSSQSConfig addresses an SQS queue.
type AWSSQSConfig struct {
	QueueURL  string `json:"queue_url" yaml:"queue_url"`
	AWSAccess `yaml:",inline"`
}

// AWSSNSConfig addresses an SNS topic.
type AWSSNSConfig struct {
	TopicARN  string `json:"topic_arn" yaml:"topic_arn"`
	AWSAccess `yaml:",inline"`
}

// GCPPubSubConfig addresses a Pub/Sub topic.
type GCPPubSubConfig struct {
	ProjectID       string `json:"project_id" yaml:"project_id"`
	Topic           string `json:"topic" yaml:"topic"`
	CredentialsFile string `json:"credentials_file" yaml:"credentials_file"`
}

// HTTPNotifierConfig is a webhook receiving the report as a JSON body.
type HTTPNotifierConfig struct {
	URL            string            `json:"url" yaml:"url"`
	Method         string            `json:"method" yaml:"method"`
	Headers        map[string]string `json:"headers" yaml:"headers"`
	TimeoutSeconds int               `json:"timeout_seconds" yaml:"timeout_seconds"`
}

// LoadFile reads the notifiers file and returns its enabled entries in file
// order. Disabled entries are still validated.
func LoadFile(path string) ([]NotifierConfig, error) {
	var file notifiersFile
	if err := configfile.Decode(path, &file); err != nil {
		return nil, fmt.Errorf("notifiers file: %w", err)
	}
	if len(file.Notifiers) == 0 {
		return nil, errors.New("notifiers file lists no notifiers")
	}

	seen := make(map[string]struct{}, len(file.Notifiers))
	out := make([]NotifierConfig, 0, len(file.Notifiers))
	for i, cfg := range file.Notifiers {
		cfg.normalize()
		if err := cfg.validate(); err != nil {
			return nil, fmt.Errorf("notifiers[%d]: %w", i, err)
		}
		if _, dup := seen[cfg.ID]; dup {
			return nil, fmt.Errorf("duplicate notifier id %q", cfg.ID)
		}
		seen[cfg.ID] = struct{}{}
		if cfg.EnabledValue() {
			out = append(out, cfg)
		}
	}
	return out, nil
}

// EnabledValue returns the enabled flag, defaulting to true.
func (cfg NotifierConfig) EnabledValue() bool {
	return cfg.Enabled == nil || *cfg.Enabled
}

func (cfg *NotifierConfig) normalize() {
	cfg.ID = strings.TrimSpace(cfg.ID)
	cfg.Type = strings.ToLower(strings.TrimSpace(cfg.Type))
	if cfg.Queue != nil {
		q := *cfg.Queue
		q.normalize()
		cfg.Queue = &q
	}
	if cfg.HTTP != nil {
		h := *cfg.HTTP
		h.normalize()
		cfg.HTTP = &h
	}
}

func (q *QueueNotifierConfig) normalize() {
	q.Provider = strings.ToLower(strings.TrimSpace(q.Provider))
	if q.SQS != nil {
		s := *q.SQS
		s.QueueURL = strings.TrimSpace(s.QueueURL)
		s.AWSAccess = s.AWSAccess.trimmed()
		q.SQS = &s
	}
	if q.SNS != nil {
		s := *q.SNS
		s.TopicARN = strings.TrimSpace(s.TopicARN)
		s.AWSAccess = s.AWSAccess.trimmed()
		q.SNS = &s
	}
	if q.GCP != nil {
		g := *q.GCP
		g.ProjectID = strings.TrimSpace(g.ProjectID)
		g.Topic = strings.TrimSpace(g.Topic)
		g.CredentialsFile = strings.TrimSpace(g.CredentialsFile)
		q.GCP = &g
	}
	if q.Provider == "" {
		q.Provider = q.inferProvider()
	}
}

// inferProvider names the only provider block set, or returns "".
func (q *QueueNotifierConfig) inferProvider() string {
	var found []string
	if q.SQS != nil {
		found = append(found, QueueProviderAWSSQS)
	}
	if q.SNS != nil {
		found = append(found, QueueProviderAWSSNS)
	}
	if q.GCP != nil {
		found = append(found, QueueProviderGCP)
	}
	if len(found) != 1 {
		return ""
	}
	return found[0]
}

func (h *HTTPNotifierConfig) normalize() {
	h.URL = strings.TrimSpace(h.URL)
	h.Method = strings.ToUpper(strings.TrimSpace(h.Method))
	if h.Method == "" {
		h.Method = httpDefaultMethod
	}
	if h.TimeoutSeconds <= 0 {
		h.TimeoutSeconds = httpDefaultTimeoutSeconds
	}
	headers := make(map[string]string, len(h.Headers))
	for k, v := range h.Headers {
		k, v = strings.TrimSpace(k), strings.TrimSpace(v)
		if k != "" && v != "" {
			headers[k] = v
		}
	}
	h.Headers = nil
	if len(headers) > 0 {
		h.Headers = headers
	}
}

func (a AWSAccess) trimmed() AWSAccess {
	return AWSAccess{
		Region:          strings.TrimSpace(a.Region),
		AccessKeyID:     strings.TrimSpace(a.AccessKeyID),
		SecretAccessKey: strings.TrimSpace(a.SecretAccessKey),
	}
}

// field is a named config value checked for presence.
type field struct {
	name  string
	value string
}

// missing lists every empty field at once so one edit fixes the entry.
func missing(id string, fields ...field) error {
	var names []string
	for _, f := range fields {
		if f.value == "" {
			names = append(names, f.name)
		}
	}
	if len(names) == 0 {
		return nil
	}
	return fmt.Errorf("notifier %q: missing %s", id, strings.Join(names, ", "))
}

func (cfg NotifierConfig) validate() error {
	if cfg.ID == "" {
		return errors.New("id is required")
	}
	switch cfg.Type {
	case TypeHTTP:
		return cfg.validateHTTP()
	case TypeQueue:
		return cfg.validateQueue()
	case "":
		return fmt.Errorf("notifier %q: type is required", cfg.ID)
	default:
		return fmt.Errorf("notifier %q: type %q not supported", cfg.ID, cfg.Type)
	}
}

func (cfg NotifierConfig) validateHTTP() error {
	if cfg.HTTP == nil {
		return fmt.Errorf("notifier %q: http block is required", cfg.ID)
	}
	if err := missing(cfg.ID, field{"http.url", cfg.HTTP.URL}); err != nil {
		return err
	}
	u, err := url.Parse(cfg.HTTP.URL)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return fmt.Errorf("notifier %q: http.url %q is not an http(s) url", cfg.ID, cfg.HTTP.URL)
	}
	switch cfg.HTTP.Method {
	case http.MethodPost, http.MethodPut, http.MethodPatch:
		return nil
	default:
		return fmt.Errorf("notifier %q: http.method %s cannot carry a report body", cfg.ID, cfg.HTTP.Method)
	}
}

func (cfg NotifierConfig) validateQueue() error {
	q := cfg.Queue
	if q == nil {
		return fmt.Errorf("notifier %q: queue block is required", cfg.ID)
	}
	switch q.Provider {
	case QueueProviderAWSSQS:
		if q.SQS == nil {
			return fmt.Errorf("notifier %q: sqs block is required", cfg.ID)
		}
		if err := missing(cfg.ID, field{"sqs.queue_url", q.SQS.QueueURL}, field{"sqs.region", q.SQS.Region}); err != nil {
			return err
		}
		return q.SQS.AWSAccess.validateKeys(cfg.ID, "sqs")
	case QueueProviderAWSSNS:
		if q.SNS == nil {
			return fmt.Errorf("notifier %q: sns block is required", cfg.ID)
		}
		if err := missing(cfg.ID, field{"sns.topic_arn", q.SNS.TopicARN}, field{"sns.region", q.SNS.Region}); err != nil {
			return err
		}
		return q.SNS.AWSAccess.validateKeys(cfg.ID, "sns")
	case QueueProviderGCP:
		if q.GCP == nil {
			return fmt.Errorf("notifier %q: gcp block is required", cfg.ID)
		}
		return missing(cfg.ID, field{"gcp.project_id", q.GCP.ProjectID}, field{"gcp.topic", q.GCP.Topic})
	case "":
		return fmt.Errorf("notifier %q: queue.provider is required when zero or several provider blocks are set", cfg.ID)
	default:
		return fmt.Errorf("notifier %q: queue provider %q not supported", cfg.ID, q.Provider)
	}
}

// validateKeys accepts both static keys or neither.
func (a AWSAccess) validateKeys(id, prefix string) error {
	if (a.AccessKeyID == "") != (a.SecretAccessKey == "") {
		return fmt.Errorf("notifier %q: %s.access_key_id and %s.secret_access_key must be set together", id, prefix, prefix)
	}
	return nil
}
