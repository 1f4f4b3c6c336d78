// Package spatial provides the 3D and 6D algebra used by the multibody tree.
//
// Everything here is a pure function of its inputs; there is no tree
// awareness and no shared state:
//
//   - [Vec3]: gonum r3 vector
//   - [Mat33]: 3x3 matrix (rotations, inertias, cross-product operators)
//   - [Transform]: rigid transform X_AB = (R_AB, p_AB)
//   - [SpatialVec]: [angular; linear] pair (velocity, acceleration, force)
//   - [SpatialMat]: 6x6 block matrix (spatial and articulated inertias)
//   - [Phi]: rigid shift operator between two body origins
//   - [MassProperties]: mass, center of mass and inertia in a body frame
//
// # Frame naming
//
// Names follow the X_AB convention: X_AB locates frame B measured from and
// expressed in frame A, so X_AC = X_AB.Compose(X_BC). Adjacent frame letters
// must match. R_AB re-expresses a vector from B to A: vA = R_AB * vB.
//
// # Spatial vectors
//
// Spatial vectors are stored angular part first:
//
//	V = [w; v]   velocity of a frame origin
//	F = [m; f]   moment about a point and force
//
// A [Phi] built from the vector l = O_child - O_parent moves forces inward
// (child to parent) and velocities outward (parent to child).
package spatial
