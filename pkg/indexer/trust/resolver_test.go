package trust_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alitto/pond/v2"
	"github.com/ltonetwork/indexer/pkg/indexer/trust"
	"github.com/ltonetwork/indexer/pkg/indexer/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	sender = "3JuijVBB7NCwCz2Ae5HhCDsqCXzeBLRTyeL"
	party  = "3Mv7ajrPLKewkBNqfxwRZoRwW6fziehp7dQ"
	wallet = "node-address"
)

func defaultHierarchy() types.Hierarchy {
	return types.NewHierarchy(map[string]types.RoleDefinition{
		"root": {
			Description: "The root",
			Issues:      []types.Role{{Type: 100, Role: "authority"}},
		},
		"authority": {
			Description:   "The authority",
			Issues:        []types.Role{{Type: 100, Role: "university"}, {Type: 101, Role: "sub_authority"}},
			Authorization: []string{"https://www.w3.org/2018/credentials/examples/v1"},
		},
		"sub_authority": {
			Description: "The sub authority",
			Issues:      []types.Role{{Type: 100, Role: "university"}},
		},
		"university": {
			Description:   "The university",
			Authorization: []string{"https://www.w3.org/2018/credentials/examples/v1"},
		},
	})
}

func sponsoredHierarchy() types.Hierarchy {
	return types.NewHierarchy(map[string]types.RoleDefinition{
		"authority":  {Description: "The authority", Issues: []types.Role{{Type: 101, Role: "university"}}},
		"university": {Description: "University", Sponsored: true},
	})
}

type harness struct {
	store    *fakeStore
	node     *fakeNode
	logs     *observer.ObservedLogs
	resolver *trust.Resolver
}

func newHarness(t *testing.T, roles types.Hierarchy) *harness {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	pool := pond.NewPool(4)
	t.Cleanup(pool.StopAndWait)

	h := &harness{
		store: &fakeStore{roles: map[string]types.RoleAssignments{
			sender: {{Role: "authority", Sender: "mock-sender", Type: 100}},
		}},
		node: &fakeNode{wallet: wallet},
		logs: logs,
	}
	h.resolver = trust.NewResolver(roles, h.store, h.node, pool, zap.New(core))
	return h
}

func grant(associationType int) types.Document {
	return types.Document{Transaction: types.RoleGrant{
		Meta:            types.Meta{ID: "fake_transaction", Type: types.TypeAssociation, Sender: sender},
		Party:           party,
		AssociationType: associationType,
	}, BlockHeight: 1}
}

func revoke(associationType int) types.Document {
	return types.Document{Transaction: types.RoleRevoke{
		Meta:            types.Meta{ID: "fake_transaction", Type: types.TypeRevokeAssociation, Sender: sender},
		Party:           party,
		AssociationType: associationType,
	}, BlockHeight: 1}
}

func messages(logs *observer.ObservedLogs, level zapcore.Level) []string {
	var out []string
	for _, e := range logs.FilterLevelExact(level).All() {
		out = append(out, e.Message)
	}
	return out
}

func TestGrantSavesRoleAssociation(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Equal(t, []savedRole{{Recipient: party, Sender: sender, Role: types.Role{Type: 101, Role: "sub_authority"}}}, h.store.saved)
	assert.Empty(t, h.store.removed)
	assert.Empty(t, h.node.sponsored)
	assert.Equal(t, []string{"Saving role association"}, messages(h.logs, zapcore.DebugLevel))
}

func TestGrantSavesEveryMatchingIssue(t *testing.T) {
	expected := []types.Role{{Type: 101, Role: "university"}, {Type: 101, Role: "sub_authority"}}
	h := newHarness(t, types.NewHierarchy(map[string]types.RoleDefinition{
		"authority": {Description: "The authority", Issues: expected},
	}))

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	require.Len(t, h.store.saved, 2)
	assert.Equal(t, expected[0], h.store.saved[0].Role)
	assert.Equal(t, expected[1], h.store.saved[1].Role)
}

func TestGrantSponsorsParty(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Equal(t, []string{party}, h.node.sponsored)
	assert.Equal(t, []string{
		"Saving role association",
		"Party is being given a sponsored role, sending a transaction to the node",
	}, messages(h.logs, zapcore.DebugLevel))
}

func TestGrantSponsorsOncePerTransaction(t *testing.T) {
	h := newHarness(t, types.NewHierarchy(map[string]types.RoleDefinition{
		"authority":  {Issues: []types.Role{{Type: 101, Role: "university"}, {Type: 101, Role: "college"}}},
		"university": {Sponsored: true},
		"college":    {Sponsored: true},
	}))

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Len(t, h.store.saved, 2)
	assert.Equal(t, []string{party}, h.node.sponsored)
}

func TestGrantSkipsSponsorWhenNodeAlreadySponsors(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())
	h.node.sponsors = []string{wallet}

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Len(t, h.store.saved, 1)
	assert.Empty(t, h.node.sponsored)
}

func TestGrantSponsorsWithOneWalletLookup(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Equal(t, []string{party}, h.node.sponsored)
	assert.Equal(t, 1, h.node.walletCalls)
}

func TestGrantSponsorsWhenOtherSponsorExists(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())
	h.node.sponsors = []string{"some-other-address"}

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	assert.Equal(t, []string{party}, h.node.sponsored)
}

func TestGrantLogsSponsorFailure(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())
	h.node.sponsorErr = errors.New("Something wrong")

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))

	errs := h.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "Error saving a role association", errs[0].Message)
	assert.Equal(t, "Something wrong", errs[0].ContextMap()["error"])
	assert.Equal(t, "fake_transaction", errs[0].ContextMap()["tx_id"])
	assert.Len(t, h.store.saved, 1)
}

func TestGrantWithoutMatchingRole(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), grant(999)))

	assert.Empty(t, h.store.saved)
	assert.Empty(t, h.node.sponsored)
	assert.Empty(t, h.logs.FilterMessage("Saving role association").All())
}

func TestGrantBySenderWithoutRoles(t *testing.T) {
	h := newHarness(t, defaultHierarchy())
	h.store.roles = nil

	require.NoError(t, h.resolver.Index(context.Background(), grant(101)))
	assert.Empty(t, h.store.saved)
}

func TestGrantByNodeWalletUsesRootRole(t *testing.T) {
	h := newHarness(t, defaultHierarchy())
	doc := grant(100)
	tx := doc.Transaction.(types.RoleGrant)
	tx.Sender = wallet
	doc.Transaction = tx

	require.NoError(t, h.resolver.Index(context.Background(), doc))

	assert.Equal(t, []savedRole{{Recipient: party, Sender: wallet, Role: types.Role{Type: 100, Role: "authority"}}}, h.store.saved)
}

func TestGrantPropagatesStorageReadFailure(t *testing.T) {
	h := newHarness(t, defaultHierarchy())
	h.store.err = errors.New("connection refused")

	err := h.resolver.Index(context.Background(), grant(101))
	require.ErrorContains(t, err, "connection refused")
	assert.Empty(t, h.store.saved)
}

func TestGrantPropagatesNodeWalletFailure(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())
	h.node.walletErr = errors.New("node down")

	require.Error(t, h.resolver.Index(context.Background(), grant(101)))
	assert.Empty(t, h.node.sponsored)
}

func TestRevokeRemovesRoleAssociation(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), revoke(101)))

	assert.Empty(t, h.store.saved)
	assert.Equal(t, []removedRole{{Recipient: party, Role: types.Role{Type: 101, Role: "sub_authority"}}}, h.store.removed)
	assert.Equal(t, []string{party}, h.node.cancelled)
	assert.Equal(t, []string{
		"Removing role association",
		"Party has no more sponsored roles, sending a transaction to the node",
	}, messages(h.logs, zapcore.DebugLevel))
}

func TestRevokeRemovesEveryMatchingIssue(t *testing.T) {
	expected := []types.Role{{Type: 101, Role: "university"}, {Type: 101, Role: "sub_authority"}}
	h := newHarness(t, types.NewHierarchy(map[string]types.RoleDefinition{
		"authority": {Description: "The authority", Issues: expected},
	}))

	require.NoError(t, h.resolver.Index(context.Background(), revoke(101)))

	assert.Equal(t, []removedRole{{Recipient: party, Role: expected[0]}, {Recipient: party, Role: expected[1]}}, h.store.removed)
}

func TestRevokeKeepsSponsorWhileSponsoredRoleRemains(t *testing.T) {
	h := newHarness(t, sponsoredHierarchy())
	h.store.roles[party] = types.RoleAssignments{{Role: "university", Sender: "mock-sender", Type: 101}}

	require.NoError(t, h.resolver.Index(context.Background(), revoke(101)))

	assert.Len(t, h.store.removed, 1)
	assert.Empty(t, h.node.cancelled)
}

func TestRevokeLogsCancelFailure(t *testing.T) {
	h := newHarness(t, defaultHierarchy())
	h.node.sponsorErr = errors.New("Something wrong")

	require.NoError(t, h.resolver.Index(context.Background(), revoke(101)))

	errs := h.logs.FilterLevelExact(zapcore.ErrorLevel).All()
	require.Len(t, errs, 1)
	assert.Equal(t, "Error removing a role association", errs[0].Message)
}

func TestRevokeWithoutMatchingRole(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	require.NoError(t, h.resolver.Index(context.Background(), revoke(999)))

	assert.Empty(t, h.store.removed)
	assert.Empty(t, h.node.cancelled)
}

func TestIndexRejectsOtherTransactions(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	doc := types.Document{Transaction: types.Generic{Meta: types.Meta{ID: "tx", Type: types.TypeTransfer}}}
	require.ErrorIs(t, h.resolver.Index(context.Background(), doc), types.ErrUnhandledType)
}

func TestGetRolesForExpandsEntitlements(t *testing.T) {
	h := newHarness(t, defaultHierarchy())
	h.store.roles["3Naddr"] = types.RoleAssignments{
		{Role: "authority", Sender: "x", Type: 100},
		{Role: "sub_authority", Sender: "x", Type: 101},
		{Role: "university", Sender: "x", Type: 100},
	}

	data, err := h.resolver.GetRolesFor(context.Background(), "3Naddr")
	require.NoError(t, err)

	assert.Equal(t, []string{"authority", "sub_authority", "university"}, data.Roles)
	assert.Equal(t, []types.Role{{Type: 100, Role: "university"}, {Type: 101, Role: "sub_authority"}}, data.IssuesRoles)
	assert.Equal(t, []string{"https://www.w3.org/2018/credentials/examples/v1"}, data.IssuesAuthorization)
}

func TestGetRolesForNodeWallet(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	data, err := h.resolver.GetRolesFor(context.Background(), wallet)
	require.NoError(t, err)

	assert.Equal(t, []string{"root"}, data.Roles)
	assert.Equal(t, []types.Role{{Type: 100, Role: "authority"}}, data.IssuesRoles)
	assert.Empty(t, data.IssuesAuthorization)

	h.store.roles[wallet] = types.RoleAssignments{{Role: "authority", Sender: "x", Type: 100}}
	data, err = h.resolver.GetRolesFor(context.Background(), wallet)
	require.NoError(t, err)
	assert.Equal(t, []string{"root", "authority"}, data.Roles)
	assert.Equal(t, []types.Role{
		{Type: 100, Role: "authority"},
		{Type: 100, Role: "university"},
		{Type: 101, Role: "sub_authority"},
	}, data.IssuesRoles)
}

func TestGetRolesForUnknownAddress(t *testing.T) {
	h := newHarness(t, defaultHierarchy())

	data, err := h.resolver.GetRolesFor(context.Background(), "3Nnobody")
	require.NoError(t, err)
	assert.Equal(t, types.RoleData{Roles: []string{}, IssuesRoles: []types.Role{}, IssuesAuthorization: []string{}}, data)
}
