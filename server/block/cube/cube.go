// Package cube holds the positional types shared by block and world logic:
// block positions, the six block faces and the four horizontal directions.
package cube

// Face is one of the six faces of a block.
type Face int

const (
	// FaceDown is the face pointing down along the Y axis.
	FaceDown Face = iota
	// FaceUp is the face pointing up along the Y axis.
	FaceUp
	// FaceNorth is the face pointing towards negative Z.
	FaceNorth
	// FaceSouth is the face pointing towards positive Z.
	FaceSouth
	// FaceWest is the face pointing towards negative X.
	FaceWest
	// FaceEast is the face pointing towards positive X.
	FaceEast
)

// Faces holds all six faces in id order.
var Faces = [...]Face{FaceDown, FaceUp, FaceNorth, FaceSouth, FaceWest, FaceEast}

// Opposite returns the face on the other side of the block.
func (f Face) Opposite() Face {
	switch f {
	case FaceDown:
		return FaceUp
	case FaceUp:
		return FaceDown
	case FaceNorth:
		return FaceSouth
	case FaceSouth:
		return FaceNorth
	case FaceWest:
		return FaceEast
	default:
		return FaceWest
	}
}

// Direction returns the horizontal direction of the face and false for the
// up and down faces.
func (f Face) Direction() (Direction, bool) {
	switch f {
	case FaceNorth:
		return North, true
	case FaceSouth:
		return South, true
	case FaceWest:
		return West, true
	case FaceEast:
		return East, true
	}
	return 0, false
}

// String returns the lower case name of the face as used in block
// properties.
func (f Face) String() string {
	switch f {
	case FaceDown:
		return "down"
	case FaceUp:
		return "up"
	case FaceNorth:
		return "north"
	case FaceSouth:
		return "south"
	case FaceWest:
		return "west"
	default:
		return "east"
	}
}

// Direction is one of the four horizontal directions.
type Direction int

const (
	// North is the direction towards negative Z.
	North Direction = iota
	// East is the direction towards positive X.
	East
	// South is the direction towards positive Z.
	South
	// West is the direction towards negative X.
	West
)

// Directions holds the four horizontal directions in id order.
var Directions = [...]Direction{North, East, South, West}

// Face returns the face pointing in the direction.
func (d Direction) Face() Face {
	switch d {
	case North:
		return FaceNorth
	case East:
		return FaceEast
	case South:
		return FaceSouth
	default:
		return FaceWest
	}
}

// Opposite returns the direction pointing the other way.
func (d Direction) Opposite() Direction {
	return (d + 2) % 4
}

// RotateRight returns the direction turned 90 degrees clockwise as seen
// from above.
func (d Direction) RotateRight() Direction {
	return (d + 1) % 4
}

// RotateLeft returns the direction turned 90 degrees anticlockwise as seen
// from above.
func (d Direction) RotateLeft() Direction {
	return (d + 3) % 4
}

// String returns the lower case name of the direction as used in block
// properties.
func (d Direction) String() string {
	return d.Face().String()
}

// DirectionByName returns the direction with the given property value name.
func DirectionByName(name string) (Direction, bool) {
	switch name {
	case "north":
		return North, true
	case "east":
		return East, true
	case "south":
		return South, true
	case "west":
		return West, true
	}
	return 0, false
}

// Pos is the position of a block in the world.
type Pos [3]int32

// X returns the X coordinate.
func (p Pos) X() int32 { return p[0] }

// Y returns the Y coordinate.
func (p Pos) Y() int32 { return p[1] }

// Z returns the Z coordinate.
func (p Pos) Z() int32 { return p[2] }

// Side returns the position next to p towards the given face.
func (p Pos) Side(f Face) Pos {
	switch f {
	case FaceDown:
		p[1]--
	case FaceUp:
		p[1]++
	case FaceNorth:
		p[2]--
	case FaceSouth:
		p[2]++
	case FaceWest:
		p[0]--
	case FaceEast:
		p[0]++
	}
	return p
}
