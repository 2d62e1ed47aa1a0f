package models

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidTrade wraps every draft validation failure.
var ErrInvalidTrade = errors.New("invalid trade")

// TradeDraft is the add/update input. Required numbers are pointers so a
// missing field is distinguishable from a zero price.
type TradeDraft struct {
	TradeDate    string    `json:"tradeDate" validate:"required,datetime=2006-01-02"`
	Strike       *int      `json:"strike" validate:"required,gt=0"`
	Type         TradeType `json:"type" validate:"required,oneof=Buy Sell"`
	Quantity     *int      `json:"quantity" validate:"required,gt=0"`
	CEEntryPrice *float64  `json:"ceEntryPrice" validate:"required,gte=0"`
	CEExitPrice  *float64  `json:"ceExitPrice" validate:"required,gte=0"`
	PEEntryPrice *float64  `json:"peEntryPrice" validate:"required,gte=0"`
	PEExitPrice  *float64  `json:"peExitPrice" validate:"required,gte=0"`
	CEEntryTime  string    `json:"ceEntryTime" validate:"required,clock"`
	CEExitTime   string    `json:"ceExitTime" validate:"required,clock"`
	PEEntryTime  string    `json:"peEntryTime" validate:"required,clock"`
	PEExitTime   string    `json:"peExitTime" validate:"required,clock"`
	Notes        string    `json:"notes"`
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func draftValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		// The entry form emits HH:MM, stored rows carry HH:MM:SS.
		_ = validate.RegisterValidation("clock", func(fl validator.FieldLevel) bool {
			return ValidClock(fl.Field().String())
		})
	})
	return validate
}

// ValidClock reports whether s is a time of day in HH:MM:SS or HH:MM form.
func ValidClock(s string) bool {
	if _, err := time.Parse(time.TimeOnly, s); err == nil {
		return true
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// Validate checks that every field needed for P/L is present and sane.
func (d *TradeDraft) Validate() error {
	if tt, ok := ParseTradeTypeOr(string(d.Type), d.Type); ok {
		d.Type = tt
	}
	if err := draftValidator().Struct(d); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidTrade, err)
	}
	return nil
}

// Trade converts a validated draft into a trade carrying id.
func (d TradeDraft) Trade(id int64) Trade {
	return Trade{
		ID:           id,
		TradeDate:    d.TradeDate,
		Strike:       *d.Strike,
		Type:         d.Type,
		Quantity:     *d.Quantity,
		CEEntryPrice: *d.CEEntryPrice,
		CEExitPrice:  *d.CEExitPrice,
		PEEntryPrice: *d.PEEntryPrice,
		PEExitPrice:  *d.PEExitPrice,
		CEEntryTime:  d.CEEntryTime,
		CEExitTime:   d.CEExitTime,
		PEEntryTime:  d.PEEntryTime,
		PEExitTime:   d.PEExitTime,
		Notes:        d.Notes,
	}
}

// DraftFrom builds a draft carrying every field of t, used when editing an
// existing trade.
func DraftFrom(t Trade) TradeDraft {
	strike, qty := t.Strike, t.Quantity
	ceIn, ceOut, peIn, peOut := t.CEEntryPrice, t.CEExitPrice, t.PEEntryPrice, t.PEExitPrice
	return TradeDraft{
		TradeDate:    t.TradeDate,
		Strike:       &strike,
		Type:         t.Type,
		Quantity:     &qty,
		CEEntryPrice: &ceIn,
		CEExitPrice:  &ceOut,
		PEEntryPrice: &peIn,
		PEExitPrice:  &peOut,
		CEEntryTime:  t.CEEntryTime,
		CEExitTime:   t.CEExitTime,
		PEEntryTime:  t.PEEntryTime,
		PEExitTime:   t.PEExitTime,
		Notes:        t.Notes,
	}
}
