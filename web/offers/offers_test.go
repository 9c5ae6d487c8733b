package offers_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"spinwheel/web/offers"
)

func TestDefaultCatalog(t *testing.T) {
	c := offers.Default()
	if c.Len() != 8 {
		t.Fatalf("Expected 8 offers, got %d", c.Len())
	}

	first, err := c.At(0)
	if err != nil {
		t.Fatal(err)
	}
	if first.Type != offers.FreeBeverageBreakfast {
		t.Error("Expected breakfast offer first, got", first.Type)
	}
	if first.Conditions.TimeRestriction != offers.Breakfast {
		t.Error("Expected breakfast restriction, got", first.Conditions.TimeRestriction)
	}

	flat, _ := c.At(6)
	if flat.Conditions.MinBillAmount != 2000 {
		t.Error("Expected min bill 2000, got", flat.Conditions.MinBillAmount)
	}
	if flat.Conditions.ApplicableSection != offers.SectionAll || flat.Conditions.TimeRestriction != offers.AllDay {
		t.Error("Expected defaults filled in, got", flat.Conditions)
	}
}

func TestAtOutOfRange(t *testing.T) {
	c := offers.Default()
	for _, i := range []int{-1, 8, 99} {
		if _, err := c.At(i); !errors.Is(err, offers.ErrIndexOutOfRange) {
			t.Errorf("index %d: expected ErrIndexOutOfRange, got %v", i, err)
		}
	}
}

func TestRandomStaysInRange(t *testing.T) {
	c := offers.Default()
	seen := map[int]bool{}
	for n := 0; n < 400; n++ {
		i, o, err := c.Random()
		if err != nil {
			t.Fatal(err)
		}
		if i < 0 || i >= c.Len() {
			t.Fatalf("index %d out of range", i)
		}
		want, _ := c.At(i)
		if o != want {
			t.Fatalf("offer at %d does not match catalog", i)
		}
		seen[i] = true
	}
	if len(seen) < 2 {
		t.Error("Expected random selection to cover more than one offer")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	c := offers.Default()
	all := c.All()
	all[0].Description = "changed"
	o, _ := c.At(0)
	if o.Description == "changed" {
		t.Error("catalog was mutated through All()")
	}
}

func TestNewRejectsInvalid(t *testing.T) {
	if _, err := offers.New(nil); err == nil {
		t.Error("Expected error for empty catalog")
	}
	if _, err := offers.New([]offers.Offer{{Type: "PIZZA", Description: "x"}}); err == nil {
		t.Error("Expected error for unknown type")
	}
	if _, err := offers.New([]offers.Offer{{Type: offers.BowlFreeAddon}}); err == nil {
		t.Error("Expected error for missing description")
	}
}

func TestLoadTOML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "offers.toml")
	content := `
[[offer]]
type = "BOWL_FREE_ADDON"
description = "Free add-on with any bowl."

[offer.conditions]
applicable_section = "BOWL"

[[offer]]
type = "FLAT_20_PERCENT_OFF_2000"
description = "20% off above 2000."

[offer.conditions]
min_bill_amount = 2000.0
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	c, err := offers.Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if c.Len() != 2 {
		t.Fatalf("Expected 2 offers, got %d", c.Len())
	}
	o, _ := c.At(1)
	if o.Conditions.MinBillAmount != 2000 || o.Conditions.TimeRestriction != offers.AllDay {
		t.Error("unexpected conditions", o.Conditions)
	}
}

func TestLoadTOMLRejectsUnknownSection(t *testing.T) {
	path := filepath.Join(t.TempDir(), "offers.toml")
	content := `
[[offer]]
type = "BOWL_FREE_ADDON"
description = "Free add-on."

[offer.conditions]
applicable_section = "DESSERT"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := offers.Load(path); err == nil {
		t.Error("Expected error for unknown section")
	}
}
