package storage

import (
	"fmt"
	"strings"
)

// Namespace prefixes every key written by the indexer.
const Namespace = "lto"

const (
	ProcessingHeightKey = Namespace + ":processing-height"
	OperationStatsKey   = Namespace + ":stats:operations"
	TxFeeBurnedKey      = Namespace + ":stats:supply:txfeeburned"
	FeeBurnHeightKey    = Namespace + ":stats:supply:feeburnheight"
)

func AnchorKey(hash string) string {
	return fmt.Sprintf("%s:anchor:%s", Namespace, strings.ToLower(hash))
}

func PublicKeyKey(address string) string {
	return fmt.Sprintf("%s:pubkey:%s", Namespace, address)
}

func VerificationKey(address string) string {
	return fmt.Sprintf("%s:verification:%s", Namespace, address)
}

func RolesKey(address string) string {
	return fmt.Sprintf("%s:roles:%s", Namespace, address)
}

func AssocChildrenKey(address string) string {
	return fmt.Sprintf("%s:assoc:%s:childs", Namespace, address)
}

func AssocParentsKey(address string) string {
	return fmt.Sprintf("%s:assoc:%s:parents", Namespace, address)
}

func TxStatsKey(txType string, day int64) string {
	return fmt.Sprintf("%s:stats:transactions:%s:%d", Namespace, txType, day)
}

// TxIndexKey names the per-address history of one transaction type.
func TxIndexKey(txType, address string) string {
	return fmt.Sprintf("%s:tx:%s:%s", Namespace, txType, address)
}
