package proctoringService

import (
	"ProctorGolang/internal/api/proctoring"
	proctoringRepository "ProctorGolang/internal/api/proctoring/repository"
	"ProctorGolang/internal/entity"
	"ProctorGolang/pkg/redis"
	"ProctorGolang/pkg/risk"
	"ProctorGolang/pkg/s3"
	"ProctorGolang/pkg/utils"
	"ProctorGolang/pkg/vision"

	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"
)

type IProctoringService interface {
	RecordClientEvent(ctx context.Context, message []byte) (entity.ProctorEvent, error)
	ListEvents(ctx context.Context, query proctoring.ListEventsQuery) (proctoring.EventListResponse, error)
	GetEvent(ctx context.Context, id int64) (entity.ProctorEvent, error)
	Analyze(ctx context.Context, frame *entity.Frame) (entity.FrameAnalysis, error)
}

type proctoringService struct {
	log        *logrus.Logger
	repository proctoringRepository.Repository
	detector   vision.Detector
	gaze       *vision.GazeEstimator
	scorer     *risk.Scorer
	publisher  redis.IRedis
	evidence   s3.ItfS3
	utils      utils.IUtils
}

// New wires the service. publisher and evidence may be nil when redis or S3
// are not configured.
func New(
	log *logrus.Logger,
	repository proctoringRepository.Repository,
	detector vision.Detector,
	gaze *vision.GazeEstimator,
	scorer *risk.Scorer,
	publisher redis.IRedis,
	evidence s3.ItfS3,
	utils utils.IUtils,
) IProctoringService {
	if gaze == nil {
		gaze = vision.NewGazeEstimator(vision.DefaultGazeConfig())
	}
	if scorer == nil {
		scorer = risk.NewScorer(risk.DefaultWeights(), log)
	}

	return &proctoringService{
		log:        log,
		repository: repository,
		detector:   detector,
		gaze:       gaze,
		scorer:     scorer,
		publisher:  publisher,
		evidence:   evidence,
		utils:      utils,
	}
}
