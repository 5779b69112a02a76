// (c) Siemens AG 2023
//
// SPDX-License-Identifier: MIT

package netns

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"
	"github.com/thediveo/lxkns/log"
)

// ContainerInspector inspects Docker containers; [client.Client] is one.
type ContainerInspector interface {
	ContainerInspect(ctx context.Context, container string) (types.ContainerJSON, error)
}

// NewClient returns a new Docker client, configured from the usual DOCKER_HOST
// and friends environment variables, and otherwise connecting to the local
// Docker daemon.
func NewClient() (*client.Client, error) {
	return client.NewClientWithOpts(
		client.FromEnv,
		client.WithAPIVersionNegotiation(),
	)
}

// ContainerNetns returns the filesystem path referencing the network namespace
// of the container identified by its name or ID. The container must be
// running, as otherwise it has no network namespace to speak of.
func ContainerNetns(ctx context.Context, moby ContainerInspector, container string) (string, error) {
	details, err := moby.ContainerInspect(ctx, container)
	if err != nil {
		return "", fmt.Errorf("cannot inspect container '%s': %w", container, err)
	}
	if details.ContainerJSONBase == nil || details.State == nil || details.State.Pid == 0 {
		return "", fmt.Errorf("container '%s' is not running", container)
	}
	name := strings.TrimPrefix(details.Name, "/") // argh, Docker's "/name" legacy!
	netnsref := fmt.Sprintf("/proc/%d/ns/net", details.State.Pid)
	log.Debugf("container '%s' has network namespace %s", name, netnsref)
	return netnsref, nil
}

// Check returns an error if netnsref doesn't reference a network namespace
// this process can access.
func Check(netnsref string) error {
	if _, err := os.Stat(netnsref); err != nil {
		return fmt.Errorf("invalid network namespace reference: %w", err)
	}
	return nil
}
