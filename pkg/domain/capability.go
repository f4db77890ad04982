package domain

// Capability names a privileged action the authorization gate can grant.
// Capabilities are checked before any lifecycle or ledger validation; the
// gate is the first thing every mutating entry point consults.
type Capability string

const (
	// CapabilityMintBurn covers privileged mint and burn on the share ledger.
	CapabilityMintBurn Capability = "MINT_BURN"
	// CapabilityWriteToken covers privileged share-level transfers and
	// ledger writes performed by the transfer agent.
	CapabilityWriteToken Capability = "WRITE_ACCESS_TOKEN"
	// CapabilityWriteTransaction covers consuming intake requests during
	// settlement.
	CapabilityWriteTransaction Capability = "WRITE_ACCESS_TRANSACTION"
	// CapabilityPause toggles the transfer pause flag.
	CapabilityPause Capability = "PAUSE"
	// CapabilityBlocklist blocks and unblocks accounts.
	CapabilityBlocklist Capability = "BLOCKLIST"
	// CapabilityOracle covers additive reward multiplier updates pushed by
	// automated price feeds.
	CapabilityOracle Capability = "ORACLE"
	// CapabilitySetMultiplier covers direct administrative overwrite of the
	// reward multiplier. A feed holding CapabilityOracle cannot rewrite the
	// multiplier outright.
	CapabilitySetMultiplier Capability = "SET_MULTIPLIER"
	// CapabilityUpgrade authorizes implementation swaps and schema
	// migrations.
	CapabilityUpgrade Capability = "UPGRADE"
)

func (c Capability) String() string {
	return string(c)
}
