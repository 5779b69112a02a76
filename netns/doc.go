/*
Package netns locates network namespaces to resolve and probe from, such as the
network namespace of a Docker container, so that cidrscope sees the network
from the perspective of that container.
*/
package netns
