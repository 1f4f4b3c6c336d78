// Package tree implements a rigid-body tree and its forward dynamics.
//
// A [Tree] is an arena of [Node] values addressed by node number. Node 0 is
// ground; every other node carries one body and the joint connecting it to
// its parent:
//
//	t := tree.New()
//	arm, _ := t.AddBody(tree.Ground, tree.Body{Joint: joint.Pin, Mass: mp, ...})
//	_ = t.Finish()
//
// Finish renumbers nodes in pre-order and assigns each one a contiguous
// range of generalized coordinates q and speeds u.
//
// # Stages
//
// Results are produced stage by stage (see package stage) into a
// state.State:
//
//   - Configuration, outward: X_JbJ, X_PB, X_GB, phi, spatial inertia, H
//   - Motion, outward: V_JbJ, V_PB, V_GB, qdot
//   - Dynamics, inward: Coriolis and gyroscopic terms, articulated inertia P,
//     D^-1, G, tauBar and psi
//   - Reaction, inward then outward: z, epsilon, nu, then udot, A_GB,
//     qdotdot and Y
//
// Together the last three passes are the Articulated-Body Algorithm and run
// in time linear in the number of bodies.
//
// # Concurrency
//
// An [Engine] runs each pass level by level. Nodes on one level are
// independent, so the [Parallel] executor fans a level out over goroutines
// with a barrier before the next level. Sequential and parallel runs give
// bit-identical caches.
package tree
