package node

const (
	addressesPath         = "/addresses"
	sponsorshipStatusPath = "/sponsorship/status/%s"
	signPath              = "/transactions/sign"
	broadcastPath         = "/transactions/broadcast"
	heightPath            = "/blocks/height"
	blocksSeqPath         = "/blocks/seq/%d/%d"
	activationStatusPath  = "/activation/status"
)
