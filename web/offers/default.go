package offers

// Default returns the restaurant's reference wheel.
func Default() *Catalog {
	c, err := New([]Offer{
		{
			Type:        FreeBeverageBreakfast,
			Description: "Order anything from our breakfast section and get a hot beverage free of your choice.",
			Conditions:  Conditions{ApplicableSection: SectionBreakfast, TimeRestriction: Breakfast},
		},
		{
			Type:        NonVeg10PercentOff,
			Description: "Order any item from our non-veg section and get a 10% off.",
			Conditions:  Conditions{ApplicableSection: SectionNonVeg},
		},
		{
			Type:        Tandoor10PercentOff,
			Description: "Flat 10% off on any one item from our tandoor section. (Active in evening).",
			Conditions:  Conditions{ApplicableSection: SectionTandoor, TimeRestriction: Evening},
		},
		{
			Type:        BowlFreeAddon,
			Description: "Order from our 'Bowl' section and get average add on the house.",
			Conditions:  Conditions{ApplicableSection: SectionBowl},
		},
		{
			Type:        ChineseHoneyChiliPotato,
			Description: "Order one full course Chinese meal and get honey chili potato from us.",
			Conditions:  Conditions{ApplicableSection: SectionChinese},
		},
		{
			Type:        ChineseMealHoneyChili,
			Description: "Have a full course Chinese meal and get honey chili potato from us.",
			Conditions:  Conditions{ApplicableSection: SectionChinese},
		},
		{
			Type:        Flat20PercentOff2000,
			Description: "Wow! A flat 20% off on your total bill. Minimum bill value should be Rupees 2000.",
			Conditions:  Conditions{MinBillAmount: 2000},
		},
		{
			Type:        FreeMocktailBiryani,
			Description: "A mocktail free to quench your thirst after having our delicious Hyderabad Biryani!",
			Conditions:  Conditions{ApplicableSection: SectionAll},
		},
	})
	if err != nil {
		panic(err)
	}
	return c
}
