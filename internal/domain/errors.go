package domain

import "fmt"

// ConfigError is raised before any network call when configuration is unusable.
type ConfigError struct {
	Field string
	Msg   string
}

func (e *ConfigError) Error() string {
	if e.Field == "" {
		return "config: " + e.Msg
	}
	return fmt.Sprintf("config: %s: %s", e.Field, e.Msg)
}

// FeedFetchError covers transport failures and non-2xx feed responses.
type FeedFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *FeedFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch feed %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch feed %s: %v", e.URL, e.Err)
}

func (e *FeedFetchError) Unwrap() error { return e.Err }

// FeedParseError is returned when the feed body is not valid feed markup.
type FeedParseError struct {
	URL string
	Err error
}

func (e *FeedParseError) Error() string { return fmt.Sprintf("parse feed %s: %v", e.URL, e.Err) }

func (e *FeedParseError) Unwrap() error { return e.Err }

// ArticleFetchError covers failures retrieving an entry's article page.
type ArticleFetchError struct {
	URL    string
	Status int
	Err    error
}

func (e *ArticleFetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("fetch article %s: status %d: %v", e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("fetch article %s: %v", e.URL, e.Err)
}

func (e *ArticleFetchError) Unwrap() error { return e.Err }

// TranscodeError is returned when the article document cannot be parsed.
type TranscodeError struct {
	Err error
}

func (e *TranscodeError) Error() string { return fmt.Sprintf("transcode article: %v", e.Err) }

func (e *TranscodeError) Unwrap() error { return e.Err }

// AuthError means the destination rejected the credentials.
type AuthError struct {
	Destination string
	Status      int
	Body        string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: credentials rejected (status %d): %s", e.Destination, e.Status, e.Body)
}

// TransportError covers network failures and unexpected responses from a destination.
type TransportError struct {
	Destination string
	Op          string
	Status      int
	Err         error
}

func (e *TransportError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s: status %d: %v", e.Destination, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Destination, e.Op, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// PublishError carries the destination's payload for a rejected create call.
type PublishError struct {
	Destination string
	Status      int
	Payload     string
	Err         error
}

func (e *PublishError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: publish draft: %v", e.Destination, e.Err)
	}
	return fmt.Sprintf("%s: publish draft rejected (status %d): %s", e.Destination, e.Status, e.Payload)
}

func (e *PublishError) Unwrap() error { return e.Err }
