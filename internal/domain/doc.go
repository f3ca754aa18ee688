// Package domain models NASA NeoWs near-Earth-object close-approach data and
// the risk features derived from it.
//
// # Data Source
//
// Records come from the NeoWs feed endpoint
// (https://api.nasa.gov/neo/rest/v1/feed). The feed answers one request per
// inclusive date range of at most seven days and returns a document keyed by
// calendar date:
//
//	{
//	  "element_count": 3,
//	  "near_earth_objects": {
//	    "2024-04-26": [ { "id": "3542519", "name": "(2010 PK9)", ... } ]
//	  }
//	}
//
// # NeoWs Data Conventions
//
// Object records:
//
//	id                                  stable external identifier (string)
//	estimated_diameter.kilometers       estimated_diameter_min / _max (numbers)
//	is_potentially_hazardous_asteroid   boolean, may be absent
//	close_approach_data                 array of approach events
//
// Close-approach events carry their numeric measurements as strings:
//
//	"miss_distance":     {"kilometers": "25486833.054981893"}
//	"relative_velocity": {"kilometers_per_hour": "54385.6419792822"}
//
// Numeric fields are accepted either as JSON numbers or as numeric strings.
// Anything else (null, empty, "UNK", negative values) is treated as missing.
//
// # Flattening
//
// Every close-approach event becomes one [ApproachRecord]. Objects are not
// deduplicated across dates, and two approaches of one object on the same
// date stay two rows. Rows that cannot be scored (no miss distance, no
// velocity, no diameter bound, unparsable date) are dropped and counted in a
// [QualityReport] instead of failing the run. See [Normalize].
//
// # Risk Scoring
//
// Three dimensions are min-max normalized over the whole dataset:
//
//	velocity   relative_velocity_km_s      higher is riskier
//	size       diameter_mean_km            larger is riskier
//	proximity  1 - norm(miss_distance_km)  closer is riskier
//
// and combined as 0.4·velocity + 0.3·size + 0.3·proximity. A dimension whose
// max equals its min normalizes to 0 for every row. The statistical anomaly
// flag (|z| of the risk score above a threshold) and the policy high-risk
// flag (risk score at or above a user threshold) are computed independently.
// See [Score].
package domain
