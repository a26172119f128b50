// SPDX-License-Identifier: EPL-2.0

// Package sim is a software stand-in for a platform DMA controller. [Memory]
// hands out regions with bus addresses, and [Engine] reserves channels whose
// workers copy bytes between those regions and an [Endpoint].
//
// Transfers run strictly in submission order. Playback transfers deliver
// their bytes to the endpoint sink when they complete; capture transfers are
// filled from the endpoint source. With [Config.Speed] set, each transfer
// takes as long as the stream byte rate dictates, which makes the engine a
// usable clock for end-to-end runs.
package sim
