package game

// World dimensions
const (
	// WorldExtent is the half-size of the cubic playfield; coordinates
	// run [-WorldExtent, WorldExtent] on each axis.
	WorldExtent = 10000.0
)

// ClampToWorld keeps a position inside the playfield.
func ClampToWorld(v Vec3) Vec3 {
	return Vec3{
		X: Clamp(v.X, -WorldExtent, WorldExtent),
		Y: Clamp(v.Y, -WorldExtent, WorldExtent),
		Z: Clamp(v.Z, -WorldExtent, WorldExtent),
	}
}

// InWorld reports whether v lies inside the playfield.
func InWorld(v Vec3) bool {
	return v.X >= -WorldExtent && v.X <= WorldExtent &&
		v.Y >= -WorldExtent && v.Y <= WorldExtent &&
		v.Z >= -WorldExtent && v.Z <= WorldExtent
}
