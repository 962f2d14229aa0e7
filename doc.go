/*
Package lifx provides data structures and functions for
communicating with LIFX devices.

This is based on the LAN protocol documented at https://lan.developer.lifx.com/docs,
so only supports local (same network) communication.
*/
package lifx
