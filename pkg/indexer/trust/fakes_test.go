package trust_test

import (
	"context"
	"sync"

	"github.com/ltonetwork/indexer/pkg/indexer/types"
)

type savedRole struct {
	Recipient string
	Sender    string
	Role      types.Role
}

type removedRole struct {
	Recipient string
	Role      types.Role
}

// fakeStore answers GetRolesFor from a fixed table and records writes.
type fakeStore struct {
	mu      sync.Mutex
	roles   map[string]types.RoleAssignments
	saved   []savedRole
	removed []removedRole
	err     error
}

func (f *fakeStore) GetRolesFor(_ context.Context, address string) (types.RoleAssignments, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	return append(types.RoleAssignments{}, f.roles[address]...), nil
}

func (f *fakeStore) SaveRoleAssociation(_ context.Context, recipient, sender string, role types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, savedRole{Recipient: recipient, Sender: sender, Role: role})
	return nil
}

func (f *fakeStore) RemoveRoleAssociation(_ context.Context, recipient string, role types.Role) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.removed = append(f.removed, removedRole{Recipient: recipient, Role: role})
	return nil
}

type fakeNode struct {
	mu          sync.Mutex
	walletCalls int
	wallet      string
	walletErr   error
	sponsors    []string
	sponsorErr  error
	sponsored   []string
	cancelled   []string
}

func (f *fakeNode) GetNodeWallet(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.walletCalls++
	return f.wallet, f.walletErr
}

func (f *fakeNode) GetSponsorsOf(context.Context, string) ([]string, error) {
	return f.sponsors, nil
}

func (f *fakeNode) Sponsor(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sponsored = append(f.sponsored, address)
	return f.sponsorErr
}

func (f *fakeNode) CancelSponsor(_ context.Context, address string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cancelled = append(f.cancelled, address)
	return f.sponsorErr
}
