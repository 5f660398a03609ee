package categories

// DefaultCategory is the positive-sentiment catch-all every fallback path
// lands on. It is part of the predefined set and can never be removed.
const DefaultCategory = "Positive Feedback"

// PredefinedOrder fixes the declaration order of the built-in categories
// for vocabulary listings and reports.
var PredefinedOrder = []string{
	"Delivery issue",
	"Food stale",
	"Delivery partner rude",
	"Maps not working properly",
	"Instamart should be open all night",
	"Bring back 10 minute bolt delivery",
	"App issues",
	"High Charges/Fees",
	DefaultCategory,
}

var predefined = map[string][]string{
	"Delivery issue": {
		"order arrived late",
		"delivery delay",
		"rider got lost",
		"didn't follow instructions",
		"delivery took too long",
		"wrong delivery address",
	},
	"Food stale": {
		"food was cold",
		"biryani was too salty",
		"burger was soggy",
		"pizza was cold",
		"stale food",
		"not fresh",
	},
	"Delivery partner rude": {
		"delivery guy was rude",
		"rider was rude",
		"delivery person behaved badly",
		"rider was impolite",
		"rude to security guard",
	},
	"Maps not working properly": {
		"map location incorrect",
		"maps not showing location properly",
		"location tracking issues",
		"wrong directions",
	},
	"Instamart should be open all night": {
		"late-night instamart",
		"instamart availability at night",
		"24/7 instamart service",
		"night delivery",
	},
	"Bring back 10 minute bolt delivery": {
		"bring back ten minute delivery",
		"10-min delivery request",
		"fast delivery option",
		"quick delivery",
	},
	"App issues": {
		"app crash",
		"app slow",
		"unable to update address",
		"payment failed",
		"login issues",
	},
	"High Charges/Fees": {
		"high delivery charges",
		"extra fees",
		"GST charges",
		"platform fees",
		"expensive",
		"overcharged",
	},
	DefaultCategory: {
		"good",
		"nice",
		"great",
		"excellent",
		"love",
		"best",
		"awesome",
		"amazing service",
	},
}

// Predefined returns a fresh copy of the built-in category map so callers
// can never mutate the canonical set.
func Predefined() map[string][]string {
	out := make(map[string][]string, len(predefined))
	for name, phrases := range predefined {
		out[name] = append([]string(nil), phrases...)
	}
	return out
}
