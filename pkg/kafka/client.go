// Package kafka 提供了与 Kafka 消息队列交互的功能。
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"shelf-search-go/internal/config"
	"shelf-search-go/pkg/log"
	"shelf-search-go/pkg/tasks"
	"strings"

	"github.com/segmentio/kafka-go"
)

// TaskProcessor defines the interface for any service that can process a task.
// This decouples the Kafka consumer from the concrete pipeline implementation.
type TaskProcessor interface {
	Process(ctx context.Context, task tasks.CatalogChangeTask) error
}

// ErrProducerNotInitialized 表示在 InitProducer 之前调用了生产接口。
var ErrProducerNotInitialized = errors.New("kafka producer not initialized")

var producer *kafka.Writer

func brokers(cfg config.KafkaConfig) []string {
	var out []string
	for _, b := range strings.Split(cfg.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// InitProducer 初始化 Kafka 生产者。同一用户的事件按 ownerId 分区，保持顺序。
func InitProducer(cfg config.KafkaConfig) {
	producer = &kafka.Writer{
		Addr:                   kafka.TCP(brokers(cfg)...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
	}
	log.Info("Kafka 生产者初始化成功")
}

// CloseProducer 关闭生产者并刷新缓冲中的消息。
func CloseProducer() error {
	if producer == nil {
		return nil
	}
	err := producer.Close()
	producer = nil
	return err
}

// EncodeTask 把目录变更事件编码为 Kafka 消息。
func EncodeTask(task tasks.CatalogChangeTask) (kafka.Message, error) {
	taskBytes, err := json.Marshal(task)
	if err != nil {
		return kafka.Message{}, err
	}
	return kafka.Message{Key: []byte(task.OwnerID), Value: taskBytes}, nil
}

// DecodeTask 解析一条目录变更消息，缺少 ownerId 的消息视为格式错误。
func DecodeTask(value []byte) (tasks.CatalogChangeTask, error) {
	var task tasks.CatalogChangeTask
	if err := json.Unmarshal(value, &task); err != nil {
		return task, err
	}
	if strings.TrimSpace(task.OwnerID) == "" {
		return task, errors.New("missing ownerId")
	}
	return task, nil
}

// ProduceCatalogChange 发送一个目录变更事件到 Kafka。
func ProduceCatalogChange(ctx context.Context, task tasks.CatalogChangeTask) error {
	if producer == nil {
		return ErrProducerNotInitialized
	}
	msg, err := EncodeTask(task)
	if err != nil {
		return err
	}
	return producer.WriteMessages(ctx, msg)
}

// messageFetcher 是 kafka.Reader 中消费循环用到的部分。
type messageFetcher interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
}

// StartConsumer 启动一个 Kafka 消费者来处理目录变更事件，直到 ctx 被取消。
func StartConsumer(ctx context.Context, cfg config.KafkaConfig, processor TaskProcessor) {
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers(cfg),
		Topic:    cfg.Topic,
		GroupID:  cfg.GroupID,
		MinBytes: 1,
		MaxBytes: 10e6, // 10MB
	})

	log.Infof("Kafka 消费者已启动，正在监听主题 '%s'", cfg.Topic)
	consume(ctx, r, processor)

	if err := r.Close(); err != nil {
		log.Errorf("关闭 Kafka 消费者失败: %v", err)
	}
}

func consume(ctx context.Context, r messageFetcher, processor TaskProcessor) {
	for {
		m, err := r.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() == nil {
				log.Error("从 Kafka 读取消息失败", err)
			}
			return
		}

		handleMessage(ctx, processor, m)

		// 失效是尽力而为的，处理失败也提交 offset，新鲜窗口兜底
		if err := r.CommitMessages(ctx, m); err != nil {
			log.Errorf("提交 Kafka 消息 offset 失败: %v", err)
		}
	}
}

func handleMessage(ctx context.Context, processor TaskProcessor, m kafka.Message) {
	task, err := DecodeTask(m.Value)
	if err != nil {
		// 消息格式错误，直接跳过，避免阻塞队列
		log.Errorf("无法解析 Kafka 消息: %v, offset: %d, value: %s", err, m.Offset, string(m.Value))
		return
	}

	if err := processor.Process(ctx, task); err != nil {
		log.Errorf("处理目录变更失败: owner=%s, action=%s, error: %v", task.OwnerID, task.Action, fmt.Errorf("offset %d: %w", m.Offset, err))
		return
	}
	log.Debugf("目录变更处理完成: owner=%s, action=%s, item=%s", task.OwnerID, task.Action, task.ItemID)
}
