package entities

// MeuseWatershed lists the Walloon rivers belonging to the Meuse watershed,
// spelled the way the Aqualim directory spells them.
var MeuseWatershed = []string{
	"AMBLEVE",
	"BOCQ",
	"BROUFFE",
	"CHIERS",
	"EAU BLANCHE",
	"EAU D'HEURE",
	"EAU NOIRE",
	"FLAVION",
	"GEER",
	"GUEULE",
	"HANTES",
	"HERMETON",
	"HOEGNE",
	"HOLZWARCHE",
	"HOUILLE",
	"HOYOUX",
	"LESSE",
	"LHOMME",
	"LIENNE",
	"MEHAIGNE",
	"MEUSE",
	"MOLIGNEE",
	"OURTHE",
	"PIETON",
	"RY D'ERPION",
	"RY D'YVES",
	"RY DE ROME",
	"RY DE SOUMOY",
	"RY ERMITAGE",
	"RY FONT AUX SERPENTS",
	"RY JAUNE",
	"RY PERNELLE",
	"SAMBRE",
	"SEMOIS",
	"THURE",
	"VESDRE",
	"VIERRE",
	"VIROIN",
	"WARCHE",
	"WARCHENNE",
}

var meuseWatershedSet = func() map[string]bool {
	set := make(map[string]bool, len(MeuseWatershed))
	for _, river := range MeuseWatershed {
		set[river] = true
	}
	return set
}()

// FilterMeuseWatershed keeps only stations on rivers of the Meuse watershed.
func FilterMeuseWatershed(stations []Station) []Station {
	var filtered []Station
	for _, st := range stations {
		if meuseWatershedSet[st.River] {
			filtered = append(filtered, st)
		}
	}
	return filtered
}
