package models

import "strings"

// Fitness categories from Appendix 1 of Order 722.
const (
	CategoryFit            = "А"     // годен к воинской службе
	CategoryFitMinor       = "Б"     // годен с незначительными ограничениями
	CategoryLimitedFit     = "В"     // ограниченно годен
	CategoryLimitedFitInd  = "В-ИНД" // ограниченно годен, индивидуальная оценка
	CategoryTemporaryUnfit = "Г"     // временно не годен
	CategoryUnfitPeace     = "Д"     // не годен в мирное время
	CategoryUnfit          = "Е"     // не годен с исключением с учёта
	CategoryNotEligible    = "НГ"    // не годен к службе в спецподразделениях
)

// categoryRank orders categories from least to most restrictive.
// В and В-ИНД share a level, as in the regulation.
var categoryRank = map[string]int{
	CategoryFit:            1,
	CategoryFitMinor:       2,
	CategoryLimitedFit:     3,
	CategoryLimitedFitInd:  3,
	CategoryTemporaryUnfit: 4,
	CategoryUnfitPeace:     5,
	CategoryUnfit:          6,
	CategoryNotEligible:    7,
}

// NormalizeCategory trims, uppercases and converts latin lookalikes
// ("A", "B") to the Cyrillic codes used by the regulation table.
func NormalizeCategory(category string) string {
	c := strings.ToUpper(strings.TrimSpace(category))
	switch c {
	case "A":
		return CategoryFit
	case "B":
		return CategoryFitMinor
	}
	return c
}

// CategoryRank returns the restrictiveness level of a category,
// 0 for unknown codes.
func CategoryRank(category string) int {
	return categoryRank[NormalizeCategory(category)]
}

// CategoryStricter reports whether category a is more restrictive than b.
// Unknown categories rank below all known ones.
func CategoryStricter(a, b string) bool {
	return CategoryRank(a) > CategoryRank(b)
}

// IsValidCategory reports whether the code exists in the category dictionary.
func IsValidCategory(category string) bool {
	_, ok := categoryRank[NormalizeCategory(category)]
	return ok
}
