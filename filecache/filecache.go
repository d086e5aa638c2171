// Package filecache holds the parsed submission and its file-level metadata
// as a read-only snapshot for rules that need file context.
package filecache

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/liamcoop/ilrvalidation/model"
)

// ErrNoMessage is returned when populating from a nil message
var ErrNoMessage = errors.New("no message to cache")

// ErrUKPRNMismatch is returned when the file name and the header name different providers
var ErrUKPRNMismatch = errors.New("file name UKPRN does not match header UKPRN")

// Cache is the file/message cache of one run
type Cache struct {
	message *model.Message
	data    Data
}

// Data is the file-level metadata of a submission
type Data struct {
	UKPRN               int       `json:"ukprn"`
	FilePreparationDate time.Time `json:"filePreparationDate"`
	FileName            string    `json:"fileName"`
}

// Populate builds the cache from a parsed message and the name of the file it came from
func Populate(message *model.Message, fileName string) (*Cache, error) {
	if message == nil {
		return nil, ErrNoMessage
	}
	return &Cache{
		message: message,
		data: Data{
			UKPRN:               message.Header.UKPRN,
			FilePreparationDate: message.Header.FilePreparationDate,
			FileName:            fileName,
		},
	}, nil
}

// FromData rebuilds a cache holding only file metadata, as shipped to workers
func FromData(d Data) *Cache {
	return &Cache{data: d}
}

// Message returns the cached message, nil when the cache was rebuilt from Data
func (c *Cache) Message() *model.Message {
	return c.message
}

// Data returns the file metadata
func (c *Cache) Data() Data {
	return c.data
}

// UKPRN returns the submitting provider from the message header
func (c *Cache) UKPRN() int {
	return c.data.UKPRN
}

// FilePreparationDate returns the preparation timestamp from the message header
func (c *Cache) FilePreparationDate() time.Time {
	return c.data.FilePreparationDate
}

// FileName returns the name of the submitted file
func (c *Cache) FileName() string {
	return c.data.FileName
}

// FileNameUKPRN returns the provider number carried in the second dash-separated
// token of the file name (ILR-10006341-1718-...), or nil when it cannot be read
func (c *Cache) FileNameUKPRN() *int {
	parts := strings.Split(filepath.Base(c.data.FileName), "-")
	if len(parts) < 2 {
		return nil
	}
	ukprn, err := strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil {
		return nil
	}
	return &ukprn
}

// CheckFileName rejects a file whose name carries a UKPRN other than the
// header's. A name without a readable UKPRN is accepted.
func (c *Cache) CheckFileName() error {
	ukprn := c.FileNameUKPRN()
	if ukprn == nil || *ukprn == c.data.UKPRN {
		return nil
	}
	return fmt.Errorf("%w: file name has %d, header has %d", ErrUKPRNMismatch, *ukprn, c.data.UKPRN)
}
