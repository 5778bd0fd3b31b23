package ner

import (
	"context"
	"regexp"
	"sort"
	"strings"

	"github.com/DeafMist/conflict-radar/backend/internal/processing"
)

// defaultPlaces covers cities, countries and regions of the tracked conflicts.
var defaultPlaces = []string{
	// Middle East
	"Israel", "Iran", "Gaza", "West Bank", "Lebanon", "Beirut", "Sidon", "Tyre",
	"Golan Heights", "Tel Aviv", "Jerusalem", "Haifa", "Ashkelon", "Rafah", "Khan Younis",
	"Syria", "Damascus", "Aleppo", "Homs", "Deir ez-Zor", "Idlib",
	"Yemen", "Sanaa", "Hodeidah", "Aden", "Red Sea", "Bab el-Mandeb",
	"Iraq", "Baghdad", "Erbil", "Tehran", "Natanz", "Isfahan", "Fordow",
	// Eastern Europe
	"Ukraine", "Russia", "Kyiv", "Kiev", "Moscow", "Donbas", "Donetsk", "Luhansk",
	"Zaporizhzhia", "Kherson", "Crimea", "Sevastopol", "Mariupol", "Bakhmut", "Avdiivka",
	"Kharkiv", "Odesa", "Mykolaiv", "Dnipro", "Lviv", "Pokrovsk",
	"Kursk", "Belgorod", "Bryansk", "Black Sea", "Sea of Azov", "Belarus", "Minsk",
	// Africa
	"Sudan", "Khartoum", "Darfur", "Omdurman", "El Fasher", "Nyala", "Port Sudan",
	"Kassala", "Wad Madani", "Mali", "Bamako", "Niger", "Niamey", "Burkina Faso",
	"Ouagadougou", "Timbuktu", "Gao", "Menaka", "Somalia", "Mogadishu", "Somaliland",
	"Hargeisa", "Puntland", "Jubaland", "Baidoa", "Kismayo", "Beledweyne",
	// Asia
	"Taiwan", "Taipei", "Kaohsiung", "Taiwan Strait", "China", "Beijing", "Kinmen",
	"Matsu", "Penghu", "Tainan", "Hsinchu", "Pingtung",
	"North Korea", "South Korea", "Pyongyang", "Seoul", "Yongbyon", "Panmunjom",
	"Kaesong", "Incheon", "South China Sea", "Spratly Islands", "Paracel Islands",
	"Scarborough Shoal", "Second Thomas Shoal", "Philippines", "Manila", "Vietnam",
	"Hanoi", "Mischief Reef", "Fiery Cross Reef", "Subi Reef", "Woody Island",
	"Myanmar", "Naypyidaw", "Yangon", "Rangoon", "Rakhine", "Mandalay", "Sagaing",
	// Americas and Arctic
	"Venezuela", "Caracas", "Maracaibo", "Barquisimeto", "Essequibo", "Guyana",
	"Greenland", "Nuuk", "Pituffik", "Denmark", "Copenhagen",
}

// Gazetteer finds known place names by case-sensitive whole-word matching.
// It is the built-in stand-in for a statistical NER model.
type Gazetteer struct {
	re *regexp.Regexp
}

// NewGazetteer builds a matcher for places; nil selects the built-in list.
func NewGazetteer(places []string) *Gazetteer {
	if places == nil {
		places = defaultPlaces
	}
	sorted := processing.Dedupe(places)
	sort.SliceStable(sorted, func(i, j int) bool {
		if len(sorted[i]) == len(sorted[j]) {
			return sorted[i] < sorted[j]
		}
		return len(sorted[i]) > len(sorted[j])
	})
	parts := make([]string, 0, len(sorted))
	for _, p := range sorted {
		parts = append(parts, `\b`+regexp.QuoteMeta(p)+`\b`)
	}
	if len(parts) == 0 {
		return &Gazetteer{}
	}
	return &Gazetteer{re: regexp.MustCompile(strings.Join(parts, "|"))}
}

// Extract implements Extractor.
func (g *Gazetteer) Extract(_ context.Context, text string) ([]string, error) {
	if g.re == nil || text == "" {
		return nil, nil
	}
	return processing.Dedupe(g.re.FindAllString(text, -1)), nil
}
