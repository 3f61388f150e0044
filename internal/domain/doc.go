// Package domain models street-lighting dimming recommendations over a
// 250 m city grid.
//
// # Data Source
//
// Recommendations originate from a nightly LightGBM export
// (predictions_postprocessed.csv) produced by the recommendation model
// pipeline. Each row describes one grid cell:
//
//	grid_id,existing_lx,recommended_lx,delta_percent,keep_hours[,reasons][,reason_1,reason_2,reason_3]
//
// # Export Conventions
//
// grid_id:
//
//	Opaque identifier, unique per export. The model emits the 0-based row
//	ordinal for the Seongsu pilot grid, so synthesized map cells join against
//	the export by construction. Rows with an empty grid_id are skipped.
//
// Numeric columns:
//
//	Exported as strings by pandas and may carry a trailing "%" on
//	delta_percent or thousands separators ("1,250"). Both are stripped before
//	coercion. Unparseable values coerce to zero rather than failing the row.
//
// delta_percent:
//
//	Signed percentage change, (recommended_lx - existing_lx) / existing_lx * 100.
//	The exported value is trusted when present; it is derived from the lux
//	columns only when the column is missing or blank.
//
// reasons:
//
//	A JSON array serialized into a single CSV field, e.g.
//	[{"key":"night_traffic","label":"야간교통량","direction":"DOWN"}].
//	Spreadsheet round-trips escape the inner quotes by doubling them; both
//	encodings are accepted. When the JSON column is absent or unparseable the
//	three pipe-delimited fallback columns reason_1..reason_3 are used, each
//	formatted "key|label|direction". Entries with fewer than three parts or
//	an unknown direction are dropped individually, never the whole row.
//
// direction:
//
//	"UP" (keep or raise illuminance) or "DOWN" (dim). The model additionally
//	emits a "KEEP" sentinel on policy-capped rows; anything other than
//	UP/DOWN fails closed and the entry is dropped.
//
// Reason ordering is the exporter's responsibility: the array is already
// ranked by contribution magnitude, so "top 3" consumers take a prefix, not
// a sorted subset.
//
// # Grid Synthesis
//
// The export carries no geometry. Map cells are synthesized deterministically
// on a near-square layout (side = ceil(sqrt(n))) around a fixed reference
// coordinate at the 250 m cell pitch, with the ordinal index as grid_id. See
// [SynthesizeCells].
package domain
