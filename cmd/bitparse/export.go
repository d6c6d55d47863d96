package main

import (
	"encoding/hex"

	"github.com/muurk/bitparse/internal/decode"
)

// exportEntry is the JSON/YAML form of a decoded entry. Slices keep decode order.
type exportEntry struct {
	Name    string         `json:"name" yaml:"name"`
	Kind    string         `json:"kind" yaml:"kind"`
	Offset  uint64         `json:"offset" yaml:"offset"`
	Bits    uint64         `json:"bits" yaml:"bits"`
	Value   *uint64        `json:"value,omitempty" yaml:"value,omitempty"`
	Hex     *string        `json:"hex,omitempty" yaml:"hex,omitempty"`
	Fields  []exportEntry  `json:"fields,omitempty" yaml:"fields,omitempty"`
	Options []exportOption `json:"options,omitempty" yaml:"options,omitempty"`
}

type exportOption struct {
	Kind   uint64        `json:"kind" yaml:"kind"`
	Name   string        `json:"name" yaml:"name"`
	Offset uint64        `json:"offset" yaml:"offset"`
	Bits   uint64        `json:"bits" yaml:"bits"`
	Length *uint64       `json:"length,omitempty" yaml:"length,omitempty"`
	Hex    string        `json:"hex,omitempty" yaml:"hex,omitempty"`
	Fields []exportEntry `json:"fields,omitempty" yaml:"fields,omitempty"`
}

// exportDocument is the top-level JSON/YAML output of a decode
type exportDocument struct {
	Format       string        `json:"format" yaml:"format"`
	Variant      string        `json:"variant,omitempty" yaml:"variant,omitempty"`
	Record       string        `json:"record" yaml:"record"`
	DeclaredBits uint64        `json:"declared_bits" yaml:"declared_bits"`
	ConsumedBits uint64        `json:"consumed_bits" yaml:"consumed_bits"`
	Summary      string        `json:"summary" yaml:"summary"`
	Entries      []exportEntry `json:"entries" yaml:"entries"`
}

func exportRecord(rec *decode.Record) []exportEntry {
	if rec == nil {
		return nil
	}
	out := make([]exportEntry, 0, len(rec.Entries))
	for _, e := range rec.Entries {
		x := exportEntry{
			Name:   e.Name,
			Kind:   e.Kind.String(),
			Offset: e.Offset,
			Bits:   e.Bits,
		}
		switch e.Kind {
		case decode.EntryUint:
			v := e.Uint
			x.Value = &v
		case decode.EntryBytes:
			h := hex.EncodeToString(e.Bytes)
			x.Hex = &h
		case decode.EntryRecord:
			x.Fields = exportRecord(e.Record)
		case decode.EntryOptions:
			x.Options = make([]exportOption, 0, len(e.Options))
			for _, o := range e.Options {
				x.Options = append(x.Options, exportOptionOf(o))
			}
		}
		out = append(out, x)
	}
	return out
}

func exportOptionOf(o decode.Option) exportOption {
	x := exportOption{
		Kind:   o.Kind,
		Name:   o.Name,
		Offset: o.Offset,
		Bits:   o.Bits,
		Hex:    hex.EncodeToString(o.Data),
		Fields: exportRecord(o.Fields),
	}
	if o.HasLength {
		l := o.Length
		x.Length = &l
	}
	return x
}
