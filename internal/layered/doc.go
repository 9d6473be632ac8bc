// Package layered builds and reduces pairwise graphical models laid out on a
// regular grid of sites with several stacked layers per site.
//
// Responsibilities: topology construction (link, grid and diagonal edge
// families), node and edge potential filling from score maps, feature maps
// and trainers, edge grouping by a line for bulk potential overrides, and
// node elimination (marginalization).
// Key types: Graph, Config, Flags.
//
// Node indices follow (y*width + x)*layers + layer for the lifetime of the
// graph; eliminated nodes stay in the store without edges.
//
// Dependency rule: this package talks to storage only through graph.Graph
// and to statistics only through the trainer interfaces.
package layered
