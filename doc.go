// Package bones is a 2D skeletal-animation runtime.
//
// Bones evaluates DragonBones-style skeletons: a bone hierarchy with
// parent-relative transforms, an animation player that samples keyframe
// timelines over time, and slots that turn the resulting pose into data a
// renderer can draw. The core never draws anything itself. Hosts plug in
// through [HostProxy] and per-slot [DisplayBinding] implementations; see the
// ebitenbind package for an Ebitengine renderer and snapshot for a headless
// rasteriser.
//
// # Quick start
//
// Skeleton data is described in memory with [SkeletonDef], compiled into a
// shared [DataCache], and instanced by a [Factory]:
//
//	cache := bones.NewDataCache()
//	if _, err := cache.Add(def); err != nil {
//		return err
//	}
//	factory := bones.NewFactory(cache, bones.WithLogger(logger))
//	arm, err := factory.BuildArmature("hero", "", bones.NopProxy{})
//	if err != nil {
//		return err
//	}
//	arm.Animation().Play("walk", 0)
//
// Then drive it from the host's tick:
//
//	if err := arm.AdvanceTime(dt); err != nil {
//		// the armature was disposed
//	}
//
// # Update cycle
//
// Each [Armature.AdvanceTime] advances the active animation states, applies
// the sampled pose to the bones, recomputes world transforms top-down (only
// for bones whose local transform or ancestors changed), updates every slot
// and its display binding, advances nested child armatures, and finally
// notifies the host. AdvanceTime(0) refreshes the pose without moving time.
//
// # Ownership
//
// Bones and slots live in flat slices owned by their armature and refer to
// each other by index. A nested child armature keeps a weak link back to the
// slot that hosts it. [Armature.Dispose] tears the whole tree down and calls
// [HostProxy.OnClear] exactly once per armature.
package bones
