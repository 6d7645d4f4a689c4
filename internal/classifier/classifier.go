// Package classifier maps a raw inspection outcome and its flagged sensor
// positions to the flaw triple every outbound report carries.
package classifier

import (
	"fmt"
	"strings"

	"axle-upload/internal/models"
)

// Flaw is the classified (place, type, disposition) triple. All three fields
// are empty when the outcome indicates no fault.
type Flaw struct {
	Place       string
	Type        string
	Disposition string
}

// CombineMode selects how multiple channel samples contribute to Place.
type CombineMode int

const (
	// CombineLastWins keeps only the place derived from the last sample.
	CombineLastWins CombineMode = iota
	// CombineJoinAll joins the distinct places of all samples with commas,
	// in sample order.
	CombineJoinAll
)

// PlaceVariant selects the convention a target uses for channels 1-2.
type PlaceVariant int

const (
	// VariantJournal maps channels 1-2 to the axle journal.
	VariantJournal PlaceVariant = iota
	// VariantReliefGroove maps channels 1-2 to the relief groove.
	VariantReliefGroove
)

// Options parameterize the per-target divergences. Everything else in the
// classification is identical across targets.
type Options struct {
	Combine     CombineMode
	Variant     PlaceVariant
	BoardSuffix bool // append -left/-right from the board code
}

// Flaw vocabulary shared by all targets.
const (
	PlaceAxleBody            = "axle body"
	PlaceThroughTransmission = "through-transmission"
	PlaceJournal             = "journal"
	PlaceReliefGroove        = "relief groove"
	PlaceWheelSeat           = "wheel seat"

	TypeCrack             = "crack"
	DispositionReinspect  = "manual re-inspection"
	suffixLeft            = "-left"
	suffixRight           = "-right"
)

// Fault-indicating outcome strings, compared exactly.
var faultOutcomes = map[string]bool{
	"fault":           true,
	"has fault":       true,
	"suspected fault": true,
}

// IsFault reports whether the raw outcome text is one of the fixed
// fault-indicating strings.
func IsFault(outcome string) bool {
	return faultOutcomes[outcome]
}

// Classify derives the flaw triple for one inspection. It is a pure function:
// identical inputs always produce identical output.
func Classify(outcome string, samples []models.ChannelSample, opt Options) Flaw {
	if !IsFault(outcome) {
		return Flaw{}
	}

	f := Flaw{
		Place:       PlaceAxleBody,
		Type:        TypeCrack,
		Disposition: DispositionReinspect,
	}
	if len(samples) == 0 {
		return f
	}

	switch opt.Combine {
	case CombineJoinAll:
		seen := make(map[string]bool, len(samples))
		places := make([]string, 0, len(samples))
		for _, s := range samples {
			p := samplePlace(s, opt)
			if !seen[p] {
				seen[p] = true
				places = append(places, p)
			}
		}
		f.Place = strings.Join(places, ",")
	default: // CombineLastWins
		f.Place = samplePlace(samples[len(samples)-1], opt)
	}
	return f
}

// samplePlace maps one (channel, board) pair to a place string. Total over
// channel 0-8 and board {0,1}; anything outside that range falls back to the
// axle body so the result is still defined.
func samplePlace(s models.ChannelSample, opt Options) string {
	var place string
	switch {
	case s.Channel == 0:
		place = PlaceThroughTransmission
	case s.Channel >= 1 && s.Channel <= 2:
		if opt.Variant == VariantReliefGroove {
			place = PlaceReliefGroove
		} else {
			place = PlaceJournal
		}
	case s.Channel >= 3 && s.Channel <= 8:
		place = PlaceWheelSeat
	default:
		return PlaceAxleBody
	}

	if opt.BoardSuffix {
		switch s.Board {
		case 0:
			place += suffixLeft
		case 1:
			place += suffixRight
		default:
			place = fmt.Sprintf("%s-board%d", place, s.Board)
		}
	}
	return place
}
