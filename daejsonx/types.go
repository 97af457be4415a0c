package daejsonx

// ObjectID is the hex form of a datastore object id, carried verbatim
// to and from the wire's {"$objectId": "..."} shape.
type ObjectID string

func (o ObjectID) String() string {
	return string(o)
}
