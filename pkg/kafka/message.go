package kafka

import (
	"encoding/json"
	"time"

	"github.com/seatwize/reconciler/pkg/models"
)

// IncomingMessage wraps a raw Kafka message with parsed headers
type IncomingMessage struct {
	Key       string
	Value     []byte
	Headers   map[string]string
	Partition int
	Offset    int64
	Timestamp time.Time
	Topic     string

	// Trace context (extracted from Kafka headers)
	TraceParent string

	// Parsed content
	Listing *models.ListingMessage
}

// ParseListing parses the message value as a scraped listing.
func (m *IncomingMessage) ParseListing() error {
	var listing models.ListingMessage
	if err := json.Unmarshal(m.Value, &listing); err != nil {
		return err
	}
	m.Listing = &listing
	return nil
}

// GetSource returns the scrape source, falling back to the header set by
// older scrapers.
func (m *IncomingMessage) GetSource() models.VenueSource {
	if m.Listing != nil && m.Listing.Source != "" {
		return m.Listing.Source
	}
	return models.VenueSource(m.Headers["source"])
}

// GetSourceID returns a unique identifier for the listing within its source.
func (m *IncomingMessage) GetSourceID() string {
	if m.Listing != nil && m.Listing.SourceID != "" {
		return m.Listing.SourceID
	}
	return m.Key
}
