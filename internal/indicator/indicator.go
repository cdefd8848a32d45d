// Package indicator provides technical indicator calculations over price data.
//
// All functions are stateless and pure: they take a chronological series and
// return a value, with neutral defaults when the series is too short. Short
// inputs never error — graceful degradation is the calculators' job upstream.
package indicator
