/*
Package types defines the resource kinds stored and subscribed to
through pkg/resource: the openDuT control-plane's peer, cluster and
device model, trimmed to what spec.md's scenarios exercise.

# Core Types

Peers:
  - PeerDescriptor: a peer's name, network interfaces and location.
    Persistable and Subscribable.
  - PeerConnectionState: a peer's live Offline/Online status.
    Persistable and Subscribable.

Clusters:
  - ClusterConfiguration: the devices and leader peer that make up a
    cluster. Persistable, Subscribable and Revisioned.
  - ClusterDeployment: marks a ClusterConfiguration as deployed.
    Shares its id space with the configuration it deploys. Deleting a
    ClusterConfiguration while its ClusterDeployment still exists is
    rejected by pkg/manager's cross-kind conflict check.

Peer configuration:
  - PeerConfiguration: the executor/device parameter set delivered to
    a peer. Persistable, Subscribable and Revisioned.

Devices:
  - DeviceDescriptor: a CAN/Ethernet device attached to a peer.
    Persistable only — not Subscribable, demonstrating that not every
    stored kind needs subscription fan-out.

Every kind's id is a defined type over resource.ID (PeerID,
ClusterConfigurationID, DeviceDescriptorID) so a PeerID can never be
passed where a DeviceDescriptorID is expected, even though both are
backed by the same 16 bytes.

# Validation

Each Persistable kind implements Validate(), called by
resource.Insert before a value ever reaches a Store:

  - Names must be non-empty and at most 64 bytes.
  - PeerDescriptor needs at least one network interface, with no
    duplicate interface names.
  - ClusterConfiguration needs at least one device, with no duplicate
    device ids.
  - PeerConfiguration parameters must have non-empty, unique names.
  - PeerConnectionState/ClusterDeployment/DeviceDescriptor reject any
    state or type outside their declared enum.
*/
package types
