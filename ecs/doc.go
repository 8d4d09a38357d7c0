// Package ecs runs bones armatures inside a Donburi world.
//
// [Spawn] builds an armature and stores it on a new entity under
// [ArmatureComponent]. [Advance] is the system that steps every armature in
// the world and removes entities whose armature was disposed. Animation
// events are published to [AnimationEventType]; subscribe in your systems
// and drain them with ProcessEvents:
//
//	ecs.AnimationEventType.Subscribe(world, onAnimationEvent)
//	...
//	if err := ecs.Advance(world, dt); err != nil { ... }
//	ecs.AnimationEventType.ProcessEvents(world)
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
