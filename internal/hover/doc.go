// Package hover cycles a card's preview frames while the pointer rests on
// it, reading the filmstrip length fresh each tick so frames generated late
// still join the cycle.
package hover
