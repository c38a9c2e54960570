package csv

import (
	"context"
	"encoding/csv"
	"fmt"
	"sort"

	"github.com/bedasa/dataport/sdk"
	pjson "github.com/pinpt/go-common/v10/json"
)

// Config is the provider configuration stored on the profile
type Config struct {
	// Delimiter is the field separator, comma when empty
	Delimiter string `json:"delimiter,omitempty"`
	// NoHeader suppresses the header row
	NoHeader bool `json:"no_header,omitempty"`
	// Columns fixes the emitted columns and their order; empty means all
	// keys of the first record, sorted
	Columns []string `json:"columns,omitempty"`
}

// Provider serializes export records as CSV, one file per segment
type Provider struct {
	entity sdk.EntityType
}

var _ sdk.Provider = (*Provider)(nil)

// New returns a CSV provider for the given entity type
func New(entity sdk.EntityType) *Provider {
	return &Provider{entity: entity}
}

// SystemName uniquely identifies the provider in the registry
func (p *Provider) SystemName() string {
	return "csv:" + p.entity.String()
}

// EntityType returns the entity type the provider exports
func (p *Provider) EntityType() sdk.EntityType {
	return p.entity
}

// FileExtension returns the file extension for produced files
func (p *Provider) FileExtension() string {
	return "csv"
}

// Features returns the provider's declared capability flags
func (p *Provider) Features() sdk.Feature {
	return sdk.FeatureCanOmitCompletionMail
}

// ConfigSchema returns the provider's configuration prototype
func (p *Provider) ConfigSchema() interface{} {
	return &Config{}
}

// Validate is called before the run starts
func (p *Provider) Validate() error {
	if !p.entity.Valid() {
		return fmt.Errorf("invalid entity type %q", p.entity)
	}
	return nil
}

func (p *Provider) config(ec *sdk.ExecuteContext) *Config {
	if c, ok := ec.Config.(*Config); ok && c != nil {
		return c
	}
	return &Config{}
}

// columns resolves the emitted column set for one segment
func columns(cfg *Config, first sdk.Record) []string {
	if len(cfg.Columns) > 0 {
		return cfg.Columns
	}
	cols := make([]string, 0, len(first))
	for k := range first {
		cols = append(cols, k)
	}
	sort.Strings(cols)
	return cols
}

func cellValue(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case fmt.Stringer:
		return t.String()
	case int, int64, float64, bool:
		return fmt.Sprintf("%v", t)
	default:
		// nested side data serializes as JSON
		return pjson.Stringify(t)
	}
}

// Execute serializes the current segment's records to the data stream
func (p *Provider) Execute(ctx context.Context, ec *sdk.ExecuteContext) error {
	cfg := p.config(ec)
	w := csv.NewWriter(ec.DataStream)
	if cfg.Delimiter != "" {
		w.Comma = rune(cfg.Delimiter[0])
	}
	var cols []string
	for {
		more, err := ec.Segmenter.ReadNextSegment()
		if err != nil {
			return err
		}
		if !more {
			break
		}
		for _, rec := range ec.Segmenter.CurrentSegment() {
			if cols == nil {
				cols = columns(cfg, rec)
				if !cfg.NoHeader {
					if err := w.Write(cols); err != nil {
						return err
					}
				}
			}
			row := make([]string, len(cols))
			for i, c := range cols {
				row[i] = cellValue(rec[c])
			}
			if err := w.Write(row); err != nil {
				ec.RecordsFailed++
				continue
			}
			ec.RecordsSucceeded++
		}
	}
	w.Flush()
	return w.Error()
}

// OnExecuted runs after all segments complete. CSV output needs no trailer.
func (p *Provider) OnExecuted(ctx context.Context, ec *sdk.ExecuteContext) error {
	return nil
}
