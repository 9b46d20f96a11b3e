package types

import (
	"fmt"
	"net"

	"github.com/eclipse-opendut/opendut-sub003/pkg/resource"
)

// PeerID identifies one openDuT peer (an ECU or gateway device
// participating in a cluster), mirroring opendut_types::peer::PeerId.
type PeerID resource.ID

func NewPeerID() PeerID           { return PeerID(resource.NewID()) }
func (id PeerID) String() string { return resource.ID(id).String() }

// ClusterConfigurationID identifies one cluster configuration, and is
// reused as the id space for its ClusterDeployment (original_source
// keeps configuration and deployment in the same id space).
type ClusterConfigurationID resource.ID

func NewClusterConfigurationID() ClusterConfigurationID {
	return ClusterConfigurationID(resource.NewID())
}
func (id ClusterConfigurationID) String() string { return resource.ID(id).String() }

// DeviceDescriptorID identifies one CAN/Ethernet device attached to a
// peer.
type DeviceDescriptorID resource.ID

func NewDeviceDescriptorID() DeviceDescriptorID  { return DeviceDescriptorID(resource.NewID()) }
func (id DeviceDescriptorID) String() string     { return resource.ID(id).String() }

// NetworkInterfaceName is the name of a network interface on a peer
// (e.g. "can0", "eth0"), used as the deduplication key for
// PeerDescriptor.NetworkInterfaces.
type NetworkInterfaceName string

// NetworkInterfaceDescriptor describes one network interface exposed
// by a peer.
type NetworkInterfaceDescriptor struct {
	Name NetworkInterfaceName
}

// PeerDescriptor is the static description of a peer: its name,
// network interfaces and physical location. Persistable and
// Subscribable, but not Revisioned — mirrors
// opendut_types::peer::PeerDescriptor, which original_source's
// resource/subscription.rs subscribes to directly.
type PeerDescriptor struct {
	resource.SubscribableMarker
	ID                PeerID
	Name              string
	NetworkInterfaces []NetworkInterfaceDescriptor
	Location          string
}

func (PeerDescriptor) Kind() resource.Kind { return "PeerDescriptor" }

func (d PeerDescriptor) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	if len(d.NetworkInterfaces) == 0 {
		return fmt.Errorf("peer %s: at least one network interface is required", d.ID)
	}
	seen := make(map[NetworkInterfaceName]struct{}, len(d.NetworkInterfaces))
	for _, iface := range d.NetworkInterfaces {
		if _, dup := seen[iface.Name]; dup {
			return fmt.Errorf("peer %s: duplicate network interface %q", d.ID, iface.Name)
		}
		seen[iface.Name] = struct{}{}
	}
	return nil
}

// PeerConnectionStateKind discriminates the PeerConnectionState
// tagged union.
type PeerConnectionStateKind string

const (
	PeerOffline PeerConnectionStateKind = "offline"
	PeerOnline  PeerConnectionStateKind = "online"
)

// PeerConnectionState is the live connectivity state of a peer:
// Offline, or Online with the remote host it connected from. Mirrors
// the Offline/Online{RemoteHost} union exercised by original_source's
// should_notify_about_resource_insertions test (spec.md scenario S3).
type PeerConnectionState struct {
	resource.SubscribableMarker
	ID         PeerID
	State      PeerConnectionStateKind
	RemoteHost net.IP // set only when State == PeerOnline
}

func (PeerConnectionState) Kind() resource.Kind { return "PeerConnectionState" }

func (s PeerConnectionState) Validate() error {
	switch s.State {
	case PeerOffline, PeerOnline:
		return nil
	default:
		return fmt.Errorf("peer %s: invalid connection state %q", s.ID, s.State)
	}
}

// ClusterConfiguration names the devices and leader peer that make up
// one cluster. Persistable, Subscribable and Revisioned: every update
// is content-hashed so CARL can answer "what configuration was device
// X a member of at revision Y".
type ClusterConfiguration struct {
	resource.SubscribableMarker
	resource.RevisionedMarker
	ID         ClusterConfigurationID
	Name       string
	DeviceIDs  []DeviceDescriptorID
	LeaderPeer PeerID
}

func (ClusterConfiguration) Kind() resource.Kind { return "ClusterConfiguration" }

func (c ClusterConfiguration) Validate() error {
	if err := validateName(c.Name); err != nil {
		return err
	}
	if len(c.DeviceIDs) == 0 {
		return fmt.Errorf("cluster configuration %s: at least one device is required", c.ID)
	}
	seen := make(map[DeviceDescriptorID]struct{}, len(c.DeviceIDs))
	for _, d := range c.DeviceIDs {
		if _, dup := seen[d]; dup {
			return fmt.Errorf("cluster configuration %s: duplicate device %s", c.ID, d)
		}
		seen[d] = struct{}{}
	}
	return nil
}

// ClusterDeploymentState discriminates deployment lifecycle phases.
type ClusterDeploymentState string

const (
	ClusterDeploymentPending ClusterDeploymentState = "pending"
	ClusterDeploymentActive  ClusterDeploymentState = "active"
)

// ClusterDeployment marks a ClusterConfiguration as deployed. Shares
// its id space with the ClusterConfiguration it deploys, per
// original_source. Deleting a ClusterConfiguration while its
// ClusterDeployment still exists is rejected as a Conflict
// (spec.md scenario S2, pkg/manager's cross-kind check).
type ClusterDeployment struct {
	resource.SubscribableMarker
	ID    ClusterConfigurationID
	State ClusterDeploymentState
}

func (ClusterDeployment) Kind() resource.Kind { return "ClusterDeployment" }

func (d ClusterDeployment) Validate() error {
	switch d.State {
	case ClusterDeploymentPending, ClusterDeploymentActive:
		return nil
	default:
		return fmt.Errorf("cluster deployment %s: invalid state %q", d.ID, d.State)
	}
}

// ExecutorParameter is one named configuration value delivered to a
// peer's executor, mirroring original_source's
// opendut-model/src/peer/configuration/parameter.rs parameter set.
type ExecutorParameter struct {
	Name  string
	Value string
}

// PeerConfiguration is the executor/device parameter set delivered to
// a peer. Persistable, Subscribable and Revisioned so CARL can answer
// "what configuration did peer X have at revision Y" when debugging
// configuration drift.
type PeerConfiguration struct {
	resource.SubscribableMarker
	resource.RevisionedMarker
	ID         PeerID
	Parameters []ExecutorParameter
}

func (PeerConfiguration) Kind() resource.Kind { return "PeerConfiguration" }

func (c PeerConfiguration) Validate() error {
	seen := make(map[string]struct{}, len(c.Parameters))
	for _, p := range c.Parameters {
		if p.Name == "" {
			return fmt.Errorf("peer configuration %s: parameter with empty name", c.ID)
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("peer configuration %s: duplicate parameter %q", c.ID, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}

// DeviceType distinguishes the physical bus a device is attached to.
type DeviceType string

const (
	DeviceTypeCAN      DeviceType = "can"
	DeviceTypeEthernet DeviceType = "ethernet"
)

// DeviceDescriptor describes one CAN/Ethernet device attached to a
// peer. Persistable only — it is deliberately not Subscribable,
// exercising spec.md §4.1's claim that not every stored kind needs
// subscription fan-out.
type DeviceDescriptor struct {
	ID   DeviceDescriptorID
	Peer PeerID
	Name string
	Type DeviceType
}

func (DeviceDescriptor) Kind() resource.Kind { return "DeviceDescriptor" }

func (d DeviceDescriptor) Validate() error {
	if err := validateName(d.Name); err != nil {
		return err
	}
	switch d.Type {
	case DeviceTypeCAN, DeviceTypeEthernet:
	default:
		return fmt.Errorf("device %s: invalid type %q", d.ID, d.Type)
	}
	return nil
}

func validateName(name string) error {
	if name == "" {
		return fmt.Errorf("name must not be empty")
	}
	if len(name) > 64 {
		return fmt.Errorf("name %q exceeds 64 bytes", name)
	}
	return nil
}
