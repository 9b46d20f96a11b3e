package manager

import (
	"context"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
	"github.com/eclipse-opendut/opendut-sub003/pkg/resource/rerr"
	"github.com/eclipse-opendut/opendut-sub003/pkg/types"
)

// DeleteClusterConfiguration removes the ClusterConfiguration stored
// under id, rejecting the delete with rerr.ErrConflict if a
// ClusterDeployment still references the same id — spec.md scenario
// S2's cross-kind check, which resource.Store's generic Remove[R]
// cannot express since it only ever sees one kind at a time.
func (m *Manager) DeleteClusterConfiguration(ctx context.Context, id types.ClusterConfigurationID) (types.ClusterConfiguration, bool, error) {
	var removed types.ClusterConfiguration
	var found bool
	err := m.ResourcesMut(ctx, func(tx *Tx) error {
		if _, deployed, err := Get[types.ClusterDeployment](tx, resource.ID(id)); err != nil {
			return err
		} else if deployed {
			return rerr.New(rerr.OpRemove, "ClusterConfiguration", resource.ID(id).String(), rerr.ErrConflict)
		}
		var err error
		removed, found, err = Remove[types.ClusterConfiguration](tx, resource.ID(id))
		return err
	})
	if err != nil {
		return types.ClusterConfiguration{}, false, err
	}
	return removed, found, nil
}
