package manager_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eclipse-opendut/opendut-sub003/pkg/manager"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/history"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
	"github.com/eclipse-opendut/opendut-sub003/pkg/types"
)

func newPeer(t *testing.T) types.PeerDescriptor {
	t.Helper()
	return types.PeerDescriptor{
		ID:                types.NewPeerID(),
		Name:              "peer-1",
		NetworkInterfaces: []types.NetworkInterfaceDescriptor{{Name: "can0"}},
		Location:          "rack-1",
	}
}

func TestResourcesMutCommitsOnSuccess(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	peer := newPeer(t)
	err := mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(peer.ID), peer)
	})
	require.NoError(t, err)

	require.NoError(t, mgr.Resources(context.Background(), func(tx *manager.Tx) error {
		got, found, err := manager.Get[types.PeerDescriptor](tx, resource.ID(peer.ID))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, peer.Name, got.Name)
		return nil
	}))
}

func TestResourcesMutRollsBackOnError(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	peer := newPeer(t)
	err := mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		if insertErr := manager.Insert(tx, resource.ID(peer.ID), peer); insertErr != nil {
			return insertErr
		}
		return assert.AnError
	})
	require.Error(t, err)

	require.NoError(t, mgr.Resources(context.Background(), func(tx *manager.Tx) error {
		_, found, err := manager.Get[types.PeerDescriptor](tx, resource.ID(peer.ID))
		require.NoError(t, err)
		assert.False(t, found)
		return nil
	}))
}

func TestResourcesReadOnlyPanicsOnSubscriptionEvent(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	peer := newPeer(t)
	assert.Panics(t, func() {
		_ = mgr.Resources(context.Background(), func(tx *manager.Tx) error {
			return manager.Insert(tx, resource.ID(peer.ID), peer)
		})
	})
}

func TestSubscribeObservesCommittedInsert(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	sub := manager.Subscribe[types.PeerDescriptor](mgr)
	peer := newPeer(t)

	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(peer.ID), peer)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	event, err := sub.Receive(ctx)
	require.NoError(t, err)
	assert.Equal(t, resource.ID(peer.ID), event.ID)
	assert.Equal(t, peer.Name, event.Value.Name)
}

func TestSubscribeNotRaisedOnRollback(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	sub := manager.Subscribe[types.PeerDescriptor](mgr)
	peer := newPeer(t)

	err := mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		if insertErr := manager.Insert(tx, resource.ID(peer.ID), peer); insertErr != nil {
			return insertErr
		}
		return assert.AnError
	})
	require.Error(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = sub.Receive(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDeviceDescriptorIsNotSubscribable(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	peer := newPeer(t)
	device := types.DeviceDescriptor{
		ID:   types.NewDeviceDescriptorID(),
		Peer: peer.ID,
		Name: "can0",
		Type: types.DeviceTypeCAN,
	}

	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(device.ID), device)
	}))
	// No panic and no subscription exists for DeviceDescriptor.
	assert.Empty(t, mgr.Channels().Kinds())
}

func TestCommitRevisionChainsAndRejectsStaleParent(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	device := types.DeviceDescriptorID(resource.NewID())
	cfg := types.ClusterConfiguration{
		ID:         types.NewClusterConfigurationID(),
		Name:       "cluster-1",
		DeviceIDs:  []types.DeviceDescriptorID{device},
		LeaderPeer: types.NewPeerID(),
	}

	rev1, err := manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), history.Root, cfg)
	require.NoError(t, err)

	cfg.Name = "cluster-1-renamed"
	rev2, err := manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), rev1.Current, cfg)
	require.NoError(t, err)
	assert.Equal(t, rev1.Current, rev2.Parent)

	cfg.Name = "cluster-1-conflicting"
	_, err = manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), rev1.Current, cfg)
	require.Error(t, err)
	assert.ErrorIs(t, err, rerr.ErrInvalidParentRevision)
}

func TestCommitRevisionNoOpWhenUnchanged(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	device := types.DeviceDescriptorID(resource.NewID())
	cfg := types.ClusterConfiguration{
		ID:         types.NewClusterConfigurationID(),
		Name:       "cluster-1",
		DeviceIDs:  []types.DeviceDescriptorID{device},
		LeaderPeer: types.NewPeerID(),
	}

	rev1, err := manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), history.Root, cfg)
	require.NoError(t, err)

	rev2, err := manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), rev1.Current, cfg)
	require.NoError(t, err)
	assert.Equal(t, rev1.Current, rev2.Current)
}

func TestRevisionAtRetrievesCommittedValue(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	device := types.DeviceDescriptorID(resource.NewID())
	cfg := types.ClusterConfiguration{
		ID:         types.NewClusterConfigurationID(),
		Name:       "cluster-1",
		DeviceIDs:  []types.DeviceDescriptorID{device},
		LeaderPeer: types.NewPeerID(),
	}

	rev, err := manager.CommitRevision(mgr, context.Background(), resource.ID(cfg.ID), history.Root, cfg)
	require.NoError(t, err)

	got, gotRev, found, err := manager.RevisionAt[types.ClusterConfiguration](mgr, resource.ID(cfg.ID), rev.Current)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, rev, gotRev)
	assert.Equal(t, cfg.Name, got.Name)
}

func TestDeleteClusterConfigurationRejectsWhenDeployed(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	device := types.DeviceDescriptorID(resource.NewID())
	cfg := types.ClusterConfiguration{
		ID:         types.NewClusterConfigurationID(),
		Name:       "cluster-1",
		DeviceIDs:  []types.DeviceDescriptorID{device},
		LeaderPeer: types.NewPeerID(),
	}
	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(cfg.ID), cfg)
	}))

	deployment := types.ClusterDeployment{ID: cfg.ID, State: types.ClusterDeploymentActive}
	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(deployment.ID), deployment)
	}))

	_, _, err := mgr.DeleteClusterConfiguration(context.Background(), cfg.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, rerr.ErrConflict)

	require.NoError(t, mgr.Resources(context.Background(), func(tx *manager.Tx) error {
		_, found, err := manager.Get[types.ClusterConfiguration](tx, resource.ID(cfg.ID))
		require.NoError(t, err)
		assert.True(t, found, "rejected delete must leave the configuration in place")
		return nil
	}))
}

func TestDeleteClusterConfigurationSucceedsWhenNotDeployed(t *testing.T) {
	mgr := manager.NewInMemory()
	defer mgr.Close()

	device := types.DeviceDescriptorID(resource.NewID())
	cfg := types.ClusterConfiguration{
		ID:         types.NewClusterConfigurationID(),
		Name:       "cluster-1",
		DeviceIDs:  []types.DeviceDescriptorID{device},
		LeaderPeer: types.NewPeerID(),
	}
	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(cfg.ID), cfg)
	}))

	removed, found, err := mgr.DeleteClusterConfiguration(context.Background(), cfg.ID)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, cfg.Name, removed.Name)
}

func TestNewPersistentRequiresDataPath(t *testing.T) {
	_, err := manager.NewPersistent(context.Background(), manager.Config{Persistent: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, rerr.ErrInvalidInput)
}

func TestNewPersistentOpensBboltFile(t *testing.T) {
	dir := t.TempDir()
	mgr, err := manager.NewPersistent(context.Background(), manager.Config{
		Persistent: true,
		DataPath:   filepath.Join(dir, "resources.db"),
	})
	require.NoError(t, err)
	defer mgr.Close()

	peer := newPeer(t)
	require.NoError(t, mgr.ResourcesMut(context.Background(), func(tx *manager.Tx) error {
		return manager.Insert(tx, resource.ID(peer.ID), peer)
	}))
}
