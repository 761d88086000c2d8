package mocks

//go:generate mockgen -destination=assignment_repository.go -package=mocks -mock_names=Repository=MockAssignmentRepository github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/assignment Repository
//go:generate mockgen -destination=cache.go -package=mocks -mock_names=Cache=MockCache github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/cache Cache
//go:generate mockgen -destination=distributor.go -package=mocks -mock_names=Distributor=MockDistributor github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/distributor Distributor
//go:generate mockgen -destination=eventbus.go -package=mocks -mock_names=EventBus=MockEventBus github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/eventbus EventBus
//go:generate mockgen -destination=group_repository.go -package=mocks -mock_names=Repository=MockGroupRepository github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/group Repository
//go:generate mockgen -destination=locker.go -package=mocks -mock_names=AdvisoryLocker=MockAdvisoryLocker github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/locker AdvisoryLocker
//go:generate mockgen -destination=task_repository.go -package=mocks -mock_names=Repository=MockTaskRepository github.com/Eeshan-Vaghjiani/workflow-sub002/internal/port/task Repository
