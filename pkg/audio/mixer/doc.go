// ABOUTME: Package mixer abstracts the hardware-facing audio output
// ABOUTME: Opaque source/buffer handles with queue, gain, and position controls
package mixer
