// Package domain models the NOAA Storm Data archive and the impact
// aggregation built on top of it.
//
// # Data Source
//
// The input is the U.S. National Weather Service Storm Data publication as
// redistributed by NOAA's National Climatic Data Center: a single CSV
// covering storm observations from 1950 through November 2011 (roughly
// 900,000 rows), normally shipped bzip2-compressed. Eight columns matter to
// this report; the remaining ~30 are ignored.
//
// # Column Conventions
//
// Event type:
//
//	EVTYPE is a free-text category label. The archive mixes case and padding
//	for the same category ("TSTM WIND", "Tstm Wind", " TSTM WIND  ").
//	Normalization is coercion-level only: trim, collapse runs of internal
//	whitespace, uppercase. Synonym folding ("TSTM WIND" vs "THUNDERSTORM
//	WIND") is out of scope; labels aggregate as published.
//
// Casualties:
//
//	FATALITIES and INJURIES are direct per-observation counts. Unparseable
//	values count as zero.
//
// Damage encoding:
//
//	PROPDMG and CROPDMG hold a three-significant-digit mantissa; PROPDMGEXP
//	and CROPDMGEXP hold a magnitude code scaling it to US dollars:
//
//	  ""         ×1        (no code recorded)
//	  H, h       ×100
//	  K, k       ×1,000
//	  M, m       ×1,000,000
//	  B, b       ×1,000,000,000
//	  0–9        ×10^digit (legacy numeric codes; the archive uses 0–8)
//	  otherwise  ×0        (junk codes "+", "-", "?" zero the contribution)
//
//	So PROPDMG=25.0 with PROPDMGEXP="K" is $25,000. A code that cannot be
//	interpreted makes the damage figure meaningless, so the row contributes
//	nothing to the damage sums, the same parse-or-zero convention applied to
//	every numeric column.
//
// Dates:
//
//	BGN_DATE ("4/18/1950 0:00:00") is used only to derive the covered year
//	range reported alongside the rankings. Unparseable dates are ignored.
//
// # Aggregation and Ranking
//
// Observations are grouped by normalized event type and summed along four
// measures: fatalities, injuries, property damage, crop damage. Two derived
// measures merge them for presentation: casualties (fatalities + injuries)
// and total damage (property + crop). Rankings are sorted by the measure in
// non-increasing order with ties broken by event type ascending, so a given
// input always yields the same table. Event types whose measure is zero are
// left out of that measure's ranking.
package domain
