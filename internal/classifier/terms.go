package classifier

import (
	"regexp"

	"github.com/DeafMist/conflict-radar/backend/internal/processing"
)

var geopoliticalHigh = []string{
	"airstrike", "air strike", "drone strike", "missile strike", "bombing",
	"IRGC", "Hezbollah", "IDF", "NATO", "Wagner", "PMC",
	"ceasefire", "escalation", "ATACMS", "HIMARS", "S-300", "S-400",
	"intercepted", "launched", "casualties", "KIA", "WIA",
	"shelling", "artillery", "mortar", "rocket attack",
	"SAM", "MANPADS", "JDAM", "cruise missile", "ballistic missile",
	"frontline", "counteroffensive", "encirclement", "bridgehead",
	"air defense", "SAR", "BDA", "SIGINT", "ISR",
	"arms shipment", "weapons transfer", "military aid",
}

var geopoliticalMedium = []string{
	"sanctions", "deployment", "military", "border", "reconnaissance",
	"convoy", "artillery", "troops", "armor", "infantry",
	"naval", "fleet", "carrier", "submarine", "warship",
	"checkpoint", "garrison", "fortification", "trench",
	"airspace", "no-fly zone", "blockade", "embargo",
	"proxy", "militia", "insurgent", "partisan",
	"humanitarian corridor", "evacuation", "refugee",
}

var domesticHigh = []string{
	"Congress", "Senate vote", "House vote", "GOP", "Democrat",
	"MAGA", "immigration bill", "Supreme Court", "midterms",
	"presidential race", "2028", "2026 election",
	"filibuster", "impeachment", "indictment",
	"campaign trail", "primary", "caucus",
	"executive order", "veto",
}

var domesticMedium = []string{
	"bipartisan", "lobbying", "PAC", "super PAC",
	"polling", "approval rating", "swing state",
	"gerrymandering", "voter registration",
}

var satireTerms = []string{
	"lmao", "lol", "rofl", "ratio", "cope", "seethe",
	"least delusional", "most sane", "average",
	"shitpost", "parody", "satire", "/s",
	"ngl", "frfr", "no cap", "based and",
}

type eventPattern struct {
	re        *regexp.Regexp
	eventType string
}

// Checked in order; the first pattern found in the text names the event type.
var eventPatterns = []eventPattern{
	{compileTerms([]string{"airstrike", "air strike", "drone strike", "bombing", "JDAM"}), "airstrike"},
	{compileTerms([]string{"missile strike", "cruise missile", "ballistic missile", "rocket attack"}), "missile_strike"},
	{compileTerms([]string{"shelling", "artillery", "mortar"}), "shelling"},
	{compileTerms([]string{"intercepted", "air defense", "SAM", "MANPADS", "S-300", "S-400"}), "interception"},
	{compileTerms([]string{"casualties", "KIA", "WIA", "killed", "wounded", "dead"}), "casualty_report"},
	{compileTerms([]string{"deployment", "convoy", "troops", "armor", "infantry", "movement", "advancing"}), "movement"},
	{compileTerms([]string{"ceasefire", "truce", "peace talk", "negotiation", "diplomatic"}), "diplomatic"},
	{compileTerms([]string{"arms shipment", "weapons transfer", "military aid"}), "arms_transfer"},
	{compileTerms([]string{"statement", "comment", "remark", "announce", "declare"}), "statement"},
}

var (
	reGeoHigh = compileTerms(geopoliticalHigh)
	reGeoMed  = compileTerms(geopoliticalMedium)
	reDomHigh = compileTerms(domesticHigh)
	reDomMed  = compileTerms(domesticMedium)
	reSatire  = compileTerms(satireTerms)
)

func compileTerms(terms []string) *regexp.Regexp {
	return processing.CompileTerms(terms)
}
