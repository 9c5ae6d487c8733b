// Package offers holds the wheel's reward definitions. The catalog is fixed
// for the lifetime of a process; clients address offers by index, so the
// order of entries is part of the contract.
package offers

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

var ErrIndexOutOfRange = errors.New("offer index out of range")

type OfferType string

const (
	FreeBeverageBreakfast   OfferType = "FREE_BEVERAGE_BREAKFAST"
	NonVeg10PercentOff      OfferType = "NONVEG_10_PERCENT_OFF"
	Tandoor10PercentOff     OfferType = "TANDOOR_10_PERCENT_OFF"
	BowlFreeAddon           OfferType = "BOWL_FREE_ADDON"
	ChineseHoneyChiliPotato OfferType = "CHINESE_HONEY_CHILI_POTATO"
	ChineseMealHoneyChili   OfferType = "CHINESE_MEAL_HONEY_CHILI"
	Flat20PercentOff2000    OfferType = "FLAT_20_PERCENT_OFF_2000"
	FreeMocktailBiryani     OfferType = "FREE_MOCKTAIL_BIRYANI"
)

func (t OfferType) Valid() bool {
	switch t {
	case FreeBeverageBreakfast, NonVeg10PercentOff, Tandoor10PercentOff, BowlFreeAddon,
		ChineseHoneyChiliPotato, ChineseMealHoneyChili, Flat20PercentOff2000, FreeMocktailBiryani:
		return true
	}
	return false
}

func (t *OfferType) UnmarshalText(b []byte) error {
	v := OfferType(b)
	if !v.Valid() {
		return fmt.Errorf("unknown offer type %q", string(b))
	}
	*t = v
	return nil
}

type TimeRestriction string

const (
	Breakfast TimeRestriction = "BREAKFAST"
	Evening   TimeRestriction = "EVENING"
	AllDay    TimeRestriction = "ALL_DAY"
)

func (r TimeRestriction) Valid() bool {
	switch r {
	case Breakfast, Evening, AllDay:
		return true
	}
	return false
}

func (r *TimeRestriction) UnmarshalText(b []byte) error {
	v := TimeRestriction(b)
	if !v.Valid() {
		return fmt.Errorf("unknown time restriction %q", string(b))
	}
	*r = v
	return nil
}

type Section string

const (
	SectionBreakfast Section = "BREAKFAST"
	SectionNonVeg    Section = "NONVEG"
	SectionTandoor   Section = "TANDOOR"
	SectionBowl      Section = "BOWL"
	SectionChinese   Section = "CHINESE"
	SectionAll       Section = "ALL"
)

func (s Section) Valid() bool {
	switch s {
	case SectionBreakfast, SectionNonVeg, SectionTandoor, SectionBowl, SectionChinese, SectionAll:
		return true
	}
	return false
}

func (s *Section) UnmarshalText(b []byte) error {
	v := Section(b)
	if !v.Valid() {
		return fmt.Errorf("unknown section %q", string(b))
	}
	*s = v
	return nil
}

// Conditions are copied onto every coupon at issuance. They are shown to
// staff at the till and are not enforced by the service.
type Conditions struct {
	MinBillAmount     float64         `toml:"min_bill_amount" json:"minBillAmount"`
	TimeRestriction   TimeRestriction `toml:"time_restriction" json:"timeRestriction"`
	ApplicableSection Section         `toml:"applicable_section" json:"applicableSection"`
}

// withDefaults fills the zero values the same way an issued coupon would
// show them: all day, every section, no minimum bill.
func (c Conditions) withDefaults() Conditions {
	if c.TimeRestriction == "" {
		c.TimeRestriction = AllDay
	}
	if c.ApplicableSection == "" {
		c.ApplicableSection = SectionAll
	}
	return c
}

type Offer struct {
	Type        OfferType  `toml:"type" json:"type"`
	Description string     `toml:"description" json:"description"`
	Conditions  Conditions `toml:"conditions" json:"conditions"`
}

type Catalog struct {
	offers []Offer
}

// New validates and freezes a catalog. The slice is copied.
func New(list []Offer) (*Catalog, error) {
	if len(list) == 0 {
		return nil, errors.New("offer catalog is empty")
	}
	frozen := make([]Offer, len(list))
	for i, o := range list {
		if !o.Type.Valid() {
			return nil, fmt.Errorf("offer %d: unknown type %q", i, o.Type)
		}
		if o.Description == "" {
			return nil, fmt.Errorf("offer %d: description is required", i)
		}
		o.Conditions = o.Conditions.withDefaults()
		if !o.Conditions.TimeRestriction.Valid() || !o.Conditions.ApplicableSection.Valid() {
			return nil, fmt.Errorf("offer %d: invalid conditions", i)
		}
		if o.Conditions.MinBillAmount < 0 {
			return nil, fmt.Errorf("offer %d: negative minimum bill", i)
		}
		frozen[i] = o
	}
	return &Catalog{offers: frozen}, nil
}

func (c *Catalog) Len() int { return len(c.offers) }

func (c *Catalog) At(i int) (Offer, error) {
	if i < 0 || i >= len(c.offers) {
		return Offer{}, fmt.Errorf("%w: %d not in [0,%d)", ErrIndexOutOfRange, i, len(c.offers))
	}
	return c.offers[i], nil
}

// Random picks an index uniformly.
func (c *Catalog) Random() (int, Offer, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(int64(len(c.offers))))
	if err != nil {
		return 0, Offer{}, fmt.Errorf("pick offer: %w", err)
	}
	i := int(n.Int64())
	return i, c.offers[i], nil
}

// All returns a copy in catalog order.
func (c *Catalog) All() []Offer {
	out := make([]Offer, len(c.offers))
	copy(out, c.offers)
	return out
}
