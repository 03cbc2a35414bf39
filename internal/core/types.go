package core

import "luminary/pkg/domain"

type (
	ArtifactKind   = domain.ArtifactKind
	ArtifactRecord = domain.ArtifactRecord
	ArtifactStore  = domain.ArtifactStore
)

const (
	KindBiography = domain.KindBiography
	KindPortrait  = domain.KindPortrait
)
