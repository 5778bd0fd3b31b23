package tagger

// conflictTerms is the keyword bank per conflict short code.
var conflictTerms = map[string][]string{
	"israel-iran": {
		"Israel", "IDF", "IAF", "Mossad", "Shin Bet",
		"Iran", "IRGC", "Quds Force", "Hezbollah", "Houthis",
		"Hamas", "PIJ", "Islamic Jihad",
		"Gaza", "West Bank", "Lebanon", "Beirut", "Sidon", "Tyre",
		"Golan", "Tel Aviv", "Haifa", "Ashkelon",
		"Syria", "Damascus", "Aleppo", "Homs", "Deir ez-Zor",
		"Yemen", "Sanaa", "Hodeidah", "Bab el-Mandeb",
		"Iraq", "Baghdad", "Erbil",
		"Iron Dome", "Arrow", "David's Sling",
		"Natanz", "Isfahan", "Fordow",
	},
	"russia-ukraine": {
		"Ukraine", "Russia", "Kyiv", "Kiev", "Moscow", "Kremlin",
		"Donbas", "Donetsk", "Luhansk", "Zaporizhzhia", "Kherson",
		"Crimea", "Sevastopol", "Mariupol", "Bakhmut", "Avdiivka",
		"Kharkiv", "Odesa", "Mykolaiv",
		"Wagner", "Prigozhin", "Zelensky", "Zelenskyy", "Putin",
		"AFU", "UAF", "ZSU",
		"Leopard", "Abrams", "Bradley", "HIMARS", "ATACMS",
		"Shahed", "Lancet", "Geran",
		"Kursk", "Belgorod", "Bryansk",
		"Black Sea", "Azov",
		"Belarus", "Minsk", "Lukashenko",
	},
	"sudan": {
		"Sudan", "Khartoum", "Darfur", "RSF", "Rapid Support Forces",
		"SAF", "Sudanese Armed Forces", "Hemeti", "Hemedti",
		"al-Burhan", "Omdurman", "El Fasher", "Nyala",
		"Port Sudan", "Kassala", "Wad Madani",
		"Janjaweed",
	},
	"taiwan-china": {
		"Taiwan", "Taipei", "Kaohsiung", "Taiwan Strait",
		"China", "PLA", "PLAN", "PLAAF", "PRC", "Beijing",
		"Xi Jinping", "CCP",
		"TSMC", "semiconductor",
		"Kinmen", "Matsu", "Penghu",
		"ADIZ", "median line", "First Island Chain",
		"anti-secession", "reunification", "One China",
		"Tainan", "Hsinchu", "Pingtung",
	},
	"korean-peninsula": {
		"North Korea", "South Korea", "DPRK", "ROK",
		"Pyongyang", "Seoul", "Kim Jong Un", "Kim Jong-un",
		"DMZ", "demilitarized zone", "38th parallel",
		"ICBM", "Hwasong", "KPA", "USFK",
		"Yongbyon", "nuclear test", "missile test",
		"Panmunjom", "Kaesong", "Incheon",
		"Yoon Suk Yeol",
	},
	"venezuela": {
		"Venezuela", "Caracas", "Maduro",
		"PDVSA", "Citgo", "FANB",
		"Machado", "Gonzalez Urrutia",
		"Essequibo", "Guyana",
		"Maracaibo", "Barquisimeto",
		"SEBIN", "colectivos",
		"Bolivarian", "Chavismo",
	},
	"greenland": {
		"Greenland", "Nuuk", "Thule", "Pituffik",
		"Denmark", "Copenhagen",
		"Arctic", "rare earth",
		"Greenlandic", "Inuit",
		"Arctic sovereignty",
		"Mette Frederiksen", "Mute Egede",
	},
	"south-china-sea": {
		"South China Sea", "Spratly", "Paracel",
		"Scarborough Shoal", "Second Thomas Shoal",
		"nine-dash line", "UNCLOS",
		"Philippines", "Manila", "Marcos",
		"Vietnam", "Hanoi",
		"Mischief Reef", "Fiery Cross",
		"Subi Reef", "Woody Island",
		"FONOP", "freedom of navigation",
		"maritime militia",
		"Ayungin", "Sierra Madre",
	},
	"sahel": {
		"Sahel", "Mali", "Bamako", "Niger", "Niamey",
		"Burkina Faso", "Ouagadougou",
		"JNIM", "ISGS", "ISWAP",
		"Africa Corps",
		"ECOWAS", "AES",
		"Azawad", "Tuareg",
		"Timbuktu", "Gao", "Menaka",
		"MINUSMA", "Barkhane",
	},
	"somalia": {
		"Somalia", "Mogadishu", "Somaliland", "Hargeisa",
		"Al-Shabaab", "al-Shabaab",
		"AFRICOM", "AMISOM", "ATMIS",
		"Puntland", "Jubaland",
		"Baidoa", "Kismayo", "Beledweyne",
		"Horn of Africa",
	},
	"myanmar": {
		"Myanmar", "Burma", "Naypyidaw", "Yangon", "Rangoon",
		"Tatmadaw", "Min Aung Hlaing",
		"NUG", "People's Defense Force",
		"Rohingya", "Rakhine",
		"Arakan Army", "KIA", "KNLA", "KNU",
		"Mandalay", "Sagaing", "Chin",
		"Aung San Suu Kyi",
	},
}

var regionBias = map[string]string{
	"israel-iran":      "Middle East",
	"russia-ukraine":   "Eastern Europe",
	"sudan":            "Sudan",
	"taiwan-china":     "East Asia",
	"korean-peninsula": "Korean Peninsula",
	"venezuela":        "South America",
	"greenland":        "Greenland",
	"south-china-sea":  "Southeast Asia",
	"sahel":            "West Africa",
	"somalia":          "East Africa",
	"myanmar":          "Southeast Asia",
}
