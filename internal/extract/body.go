// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package extract

// BodyStage flattens the document body after stripping page chrome. It is
// noisier than a container match and is gated higher.
type BodyStage struct{}

func (BodyStage) Name() string { return StageBody }

func (BodyStage) Extract(markup []byte) (string, error) {
	doc, err := parse(markup)
	if err != nil {
		return "", err
	}
	body := doc.Find("body")
	if body.Length() == 0 {
		return "", ErrNotFound
	}
	body.Find(chrome).Remove()
	return flatten(body), nil
}
